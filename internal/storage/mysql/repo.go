package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"review_analyzer/internal/domain"
)

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) FindByText(ctx context.Context, text string) (domain.Review, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, findByTextSQL, text))
}

// Create inserts a new row and reads it back so the caller sees the
// DB-assigned id and creation timestamp.
func (r *Repo) Create(ctx context.Context, rv domain.Review) (domain.Review, error) {
	res, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ProductName,
		rv.ReviewText,
		rv.Sentiment,
		rv.Confidence,
		string(rv.KeyPointsRaw),
	)
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Review{}, fmt.Errorf("insert review id: %w", err)
	}
	return r.scanOne(r.db.QueryRowContext(ctx, getByIDSQL, id))
}

func (r *Repo) ListAll(ctx context.Context) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, listAllSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var rv domain.Review
		var raw sql.RawBytes
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductName,
			&rv.ReviewText,
			&rv.Sentiment,
			&rv.Confidence,
			&raw,
			&rv.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			rv.KeyPointsRaw = append([]byte(nil), raw...)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) scanOne(row *sql.Row) (domain.Review, error) {
	var rv domain.Review
	var raw []byte
	if err := row.Scan(
		&rv.ID,
		&rv.ProductName,
		&rv.ReviewText,
		&rv.Sentiment,
		&rv.Confidence,
		&raw,
		&rv.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	rv.KeyPointsRaw = raw
	return rv, nil
}
