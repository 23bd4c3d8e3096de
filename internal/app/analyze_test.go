package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"review_analyzer/internal/adapters/lexicon"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	rows      []domain.Review
	nextID    int64
	createErr error
	listErr   error
}

func (f *fakeRepo) FindByText(ctx context.Context, text string) (domain.Review, error) {
	// newest row wins, like the real query
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].ReviewText == text {
			return f.rows[i], nil
		}
	}
	return domain.Review{}, domain.ErrNotFound
}

func (f *fakeRepo) Create(ctx context.Context, r domain.Review) (domain.Review, error) {
	if f.createErr != nil {
		return domain.Review{}, f.createErr
	}
	f.nextID++
	r.ID = f.nextID
	r.CreatedAt = time.Now()
	f.rows = append(f.rows, r)
	return r, nil
}

func (f *fakeRepo) ListAll(ctx context.Context) ([]domain.Review, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Review, 0, len(f.rows))
	for i := len(f.rows) - 1; i >= 0; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

type fakeClassifier struct {
	cls   domain.Classification
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	f.calls++
	return f.cls, f.err
}

type fakeExtractor struct {
	points []string
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	f.calls++
	return f.points, f.err
}

type fakeCache struct {
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.Analysis:
		*d = v.(domain.Analysis)
	case *[]domain.Analysis:
		*d = v.([]domain.Analysis)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func neutral(string) domain.Classification {
	return domain.Classification{Label: "NEUTRAL", Score: 0.50}
}

func newService(repo *fakeRepo, cl *fakeClassifier, ex *fakeExtractor, fb app.FallbackFunc, cache domain.Cache) *app.AnalysisService {
	if fb == nil {
		fb = neutral
	}
	return app.NewAnalysisService(repo, cl, ex, fb, cache, 10*time.Minute)
}

// ---- tests ----

func TestAnalyze_FreshReview(t *testing.T) {
	repo := &fakeRepo{}
	cl := &fakeClassifier{cls: domain.Classification{Label: "positive", Score: 0.91}}
	ex := &fakeExtractor{points: []string{"Baterai awet", "Kamera bagus"}}
	svc := newService(repo, cl, ex, nil, nil)

	got, err := svc.AnalyzeReview(context.Background(), "Phone X", "mantap sekali")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Cached {
		t.Fatalf("fresh analysis must not be tagged cached")
	}
	if got.Sentiment != "positive" || got.Confidence != 0.91 {
		t.Fatalf("unexpected classification: %+v", got)
	}
	if len(got.KeyPoints) != 2 || got.KeyPoints[0] != "Baterai awet" {
		t.Fatalf("unexpected key points: %v", got.KeyPoints)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(repo.rows))
	}
	if !repo.rows[0].CacheValid() {
		t.Fatalf("stored row should be a valid cache entry")
	}
}

func TestAnalyze_CacheHit_NoRemoteCalls(t *testing.T) {
	repo := &fakeRepo{}
	cl := &fakeClassifier{cls: domain.Classification{Label: "positive", Score: 0.9}}
	ex := &fakeExtractor{points: []string{"Layar terang"}}
	svc := newService(repo, cl, ex, nil, nil)

	if _, err := svc.AnalyzeReview(context.Background(), "TV", "layarnya bagus"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cl.calls, ex.calls = 0, 0

	got, err := svc.AnalyzeReview(context.Background(), "TV", "layarnya bagus")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !got.Cached {
		t.Fatalf("expected cached result")
	}
	if cl.calls != 0 || ex.calls != 0 {
		t.Fatalf("cache hit must not touch remote adapters (classifier=%d extractor=%d)", cl.calls, ex.calls)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("cache hit must not persist a new row, got %d", len(repo.rows))
	}
}

func TestAnalyze_SentinelEntryIsReanalyzed(t *testing.T) {
	repo := &fakeRepo{}
	repo.rows = append(repo.rows, domain.Review{
		ID:           1,
		ProductName:  "Phone X",
		ReviewText:   "bagus",
		Sentiment:    "NEUTRAL",
		Confidence:   0.5,
		KeyPointsRaw: domain.EncodeKeyPoints([]string{domain.KeyPointsFailed}),
	})
	repo.nextID = 1

	cl := &fakeClassifier{cls: domain.Classification{Label: "positive", Score: 0.8}}
	ex := &fakeExtractor{points: []string{"Kualitas bagus"}}
	svc := newService(repo, cl, ex, nil, nil)

	got, err := svc.AnalyzeReview(context.Background(), "Phone X", "bagus")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Cached {
		t.Fatalf("poisoned entry must not be served as a cache hit")
	}
	if ex.calls != 1 || cl.calls != 1 {
		t.Fatalf("expected fresh remote calls, got extractor=%d classifier=%d", ex.calls, cl.calls)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("re-analysis must append a new row, got %d", len(repo.rows))
	}
	if got.ID == 1 {
		t.Fatalf("must not reuse the poisoned row")
	}
}

func TestAnalyze_UndecodableEntryIsReanalyzed(t *testing.T) {
	repo := &fakeRepo{}
	repo.rows = append(repo.rows, domain.Review{
		ID:           1,
		ReviewText:   "jelek",
		KeyPointsRaw: []byte("not-json"),
	})
	repo.nextID = 1

	cl := &fakeClassifier{cls: domain.Classification{Label: "negative", Score: 0.7}}
	ex := &fakeExtractor{points: []string{"Cepat rusak"}}
	svc := newService(repo, cl, ex, nil, nil)

	got, err := svc.AnalyzeReview(context.Background(), "", "jelek")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Cached || len(repo.rows) != 2 {
		t.Fatalf("undecodable entry must trigger re-analysis (cached=%v rows=%d)", got.Cached, len(repo.rows))
	}
}

func TestAnalyze_BothRemotesDown_DegradesGracefully(t *testing.T) {
	repo := &fakeRepo{}
	cl := &fakeClassifier{err: errors.New("classifier down")}
	ex := &fakeExtractor{err: errors.New("extractor down")}
	svc := newService(repo, cl, ex, lexicon.Estimate, nil)

	got, err := svc.AnalyzeReview(context.Background(), "Phone X", "Baterainya awet dan kameranya bagus")
	if err != nil {
		t.Fatalf("adapter failures must not surface: %v", err)
	}
	if got.Sentiment != "POSITIVE" {
		t.Fatalf("lexicon fallback should yield POSITIVE, got %s", got.Sentiment)
	}
	if len(got.KeyPoints) != 1 || got.KeyPoints[0] != domain.KeyPointsFailed {
		t.Fatalf("expected sentinel key points, got %v", got.KeyPoints)
	}
	if got.Cached {
		t.Fatalf("fresh record must not carry the cached tag")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("degraded analysis is still persisted")
	}
	// the stored row is poisoned on purpose: next request re-analyzes
	if repo.rows[0].CacheValid() {
		t.Fatalf("sentinel row must not be cache-valid")
	}
}

func TestAnalyze_EmptyReviewText(t *testing.T) {
	svc := newService(&fakeRepo{}, &fakeClassifier{}, &fakeExtractor{}, nil, nil)
	if _, err := svc.AnalyzeReview(context.Background(), "Phone X", "   "); !errors.Is(err, domain.ErrEmptyReview) {
		t.Fatalf("expected ErrEmptyReview, got %v", err)
	}
}

func TestAnalyze_DefaultProductName(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeClassifier{cls: domain.Classification{Label: "neutral", Score: 0.6}},
		&fakeExtractor{points: []string{"Biasa saja"}}, nil, nil)

	got, err := svc.AnalyzeReview(context.Background(), "", "biasa saja")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.ProductName != app.DefaultProductName {
		t.Fatalf("expected default product name, got %q", got.ProductName)
	}
}

func TestAnalyze_StorageWriteFailureSurfaces(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("db gone")}
	svc := newService(repo, &fakeClassifier{cls: domain.Classification{Label: "positive", Score: 0.9}},
		&fakeExtractor{points: []string{"Oke"}}, nil, nil)

	if _, err := svc.AnalyzeReview(context.Background(), "X", "bagus"); err == nil {
		t.Fatalf("storage write failure must surface")
	}
}

func TestAnalyze_HotCacheServesSecondRequest(t *testing.T) {
	repo := &fakeRepo{}
	cl := &fakeClassifier{cls: domain.Classification{Label: "positive", Score: 0.9}}
	ex := &fakeExtractor{points: []string{"Awet"}}
	cache := &fakeCache{}
	svc := newService(repo, cl, ex, nil, cache)

	if _, err := svc.AnalyzeReview(context.Background(), "X", "awet"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// wipe the repo; a hot-cache hit must not need it
	repo.rows = nil
	got, err := svc.AnalyzeReview(context.Background(), "X", "awet")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !got.Cached || got.KeyPoints[0] != "Awet" {
		t.Fatalf("expected hot-cache hit, got %+v", got)
	}
}

func TestList_BrokenRecordIsolated(t *testing.T) {
	repo := &fakeRepo{}
	repo.rows = []domain.Review{
		{ID: 1, ProductName: "A", ReviewText: "a", KeyPointsRaw: domain.EncodeKeyPoints([]string{"p1"})},
		{ID: 2, ProductName: "B", ReviewText: "b", KeyPointsRaw: []byte("broken")},
		{ID: 3, ProductName: "C", ReviewText: "c", KeyPointsRaw: domain.EncodeKeyPoints([]string{"p3"})},
	}
	repo.nextID = 3
	svc := newService(repo, &fakeClassifier{}, &fakeExtractor{}, nil, nil)

	out, err := svc.ListReviews(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("one broken record must not abort the listing, got %d of 3", len(out))
	}
	// newest first
	if out[0].ID != 3 || out[2].ID != 1 {
		t.Fatalf("expected newest-first ordering: %+v", out)
	}
	if len(out[1].KeyPoints) != 0 {
		t.Fatalf("broken record must get an empty list, got %v", out[1].KeyPoints)
	}
	if len(out[0].KeyPoints) != 1 || len(out[2].KeyPoints) != 1 {
		t.Fatalf("healthy records must keep their points")
	}
}

func TestList_StorageFailureSurfaces(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("db gone")}
	svc := newService(repo, &fakeClassifier{}, &fakeExtractor{}, nil, nil)
	if _, err := svc.ListReviews(context.Background()); err == nil {
		t.Fatalf("storage failure must surface from listing")
	}
}

func TestList_CachedBetweenCalls(t *testing.T) {
	repo := &fakeRepo{}
	repo.rows = []domain.Review{{ID: 1, ProductName: "A", ReviewText: "a", KeyPointsRaw: domain.EncodeKeyPoints([]string{"p1"})}}
	repo.nextID = 1
	cache := &fakeCache{}
	svc := newService(repo, &fakeClassifier{}, &fakeExtractor{}, nil, cache)

	first, err := svc.ListReviews(context.Background())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	repo.listErr = errors.New("db gone")

	second, err := svc.ListReviews(context.Background())
	if err != nil {
		t.Fatalf("cached listing should not hit the store: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected cached listing, got %+v", second)
	}
}
