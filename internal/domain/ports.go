package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound signals an absent row; it is not a storage fault.
	ErrNotFound = errors.New("review: not found")
	// ErrEmptyReview rejects an analyze request without review text.
	ErrEmptyReview = errors.New("review: review_text is required")
)

type ReviewRepository interface {
	// FindByText does an exact-match lookup on review text (case and
	// whitespace sensitive). When duplicates exist the newest row wins.
	// Returns ErrNotFound when no row matches.
	FindByText(ctx context.Context, text string) (Review, error)

	// Create inserts a new row and returns it with the assigned id and
	// creation timestamp.
	Create(ctx context.Context, r Review) (Review, error)

	// ListAll returns every stored review, newest first.
	ListAll(ctx context.Context) ([]Review, error)
}

// SentimentClassifier wraps the remote classification endpoint. An error
// means "classifier unavailable"; callers fall back to the local estimator.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// KeyPointExtractor wraps the remote generation endpoint. An error means
// extraction failed entirely; callers substitute the failure sentinel.
type KeyPointExtractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
