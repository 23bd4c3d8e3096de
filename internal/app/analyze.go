package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

// DefaultProductName is used when the request does not name a product.
const DefaultProductName = "Produk Tanpa Nama"

const listCacheKey = "reviews:all"

// FallbackFunc produces a classification locally when the remote classifier
// is unavailable. It must never fail.
type FallbackFunc func(text string) domain.Classification

// AnalysisService orchestrates one analysis per request: cache check,
// key-point extraction and sentiment classification with fallbacks, persist,
// respond. No state is retained between requests.
type AnalysisService struct {
	repo       domain.ReviewRepository
	classifier domain.SentimentClassifier
	extractor  domain.KeyPointExtractor
	fallback   FallbackFunc
	cache      domain.Cache
	cacheTTL   time.Duration
}

func NewAnalysisService(
	repo domain.ReviewRepository,
	classifier domain.SentimentClassifier,
	extractor domain.KeyPointExtractor,
	fallback FallbackFunc,
	cache domain.Cache,
	ttl time.Duration,
) *AnalysisService {
	return &AnalysisService{
		repo:       repo,
		classifier: classifier,
		extractor:  extractor,
		fallback:   fallback,
		cache:      cache,
		cacheTTL:   ttl,
	}
}

// AnalyzeReview runs the full pipeline for one review. Adapter failures
// degrade to fallback results and never surface; storage failures abort the
// request with no row persisted.
func (s *AnalysisService) AnalyzeReview(ctx context.Context, productName, reviewText string) (domain.Analysis, error) {
	if strings.TrimSpace(reviewText) == "" {
		return domain.Analysis{}, domain.ErrEmptyReview
	}
	if productName == "" {
		productName = DefaultProductName
	}

	// Hot cache in front of the store. Only validated analyses are ever
	// written here, but the poison rule is still applied on read so the two
	// cache layers can never disagree.
	key := textKey(reviewText)
	if s.cache != nil {
		var hit domain.Analysis
		if ok, _ := s.cache.Get(ctx, key, &hit); ok && cacheValid(hit.KeyPoints) {
			hit.Cached = true
			return hit, nil
		}
	}

	// Store lookup by exact text. A decodable, non-empty, non-sentinel
	// record is a hit; anything else (including a poisoned row) falls
	// through to a fresh analysis.
	prior, err := s.repo.FindByText(ctx, reviewText)
	switch {
	case err == nil:
		if prior.CacheValid() {
			pts, _ := domain.DecodeKeyPoints(prior.KeyPointsRaw)
			out := toAnalysis(prior, pts, true)
			if s.cache != nil {
				_ = s.cache.Set(ctx, key, toAnalysis(prior, pts, false), int(s.cacheTTL.Seconds()))
			}
			return out, nil
		}
		log.Warn().Int64("id", prior.ID).Msg("poisoned cache entry, re-analyzing")
	case errors.Is(err, domain.ErrNotFound):
		// fresh text
	default:
		return domain.Analysis{}, fmt.Errorf("cache lookup: %w", err)
	}

	// Extraction always yields a non-empty list; total failure stores the
	// sentinel so the record is retried next time instead of trusted.
	extraction := "genuine"
	points, err := s.extractor.Extract(ctx, reviewText)
	if err != nil || len(points) == 0 {
		log.Warn().Err(err).Msg("key-point extraction failed, storing sentinel")
		points = []string{domain.KeyPointsFailed}
		extraction = "placeholder"
	}

	// Exactly one of the remote classifier or the local estimator produces
	// the final label/score; there is no blending.
	source := "remote"
	cls, err := s.classifier.Classify(ctx, reviewText)
	if err != nil {
		log.Warn().Err(err).Msg("remote classifier unavailable, using local estimator")
		cls = s.fallback(reviewText)
		source = "fallback"
	}

	created, err := s.repo.Create(ctx, domain.Review{
		ProductName:  productName,
		ReviewText:   reviewText,
		Sentiment:    cls.Label,
		Confidence:   cls.Score,
		KeyPointsRaw: domain.EncodeKeyPoints(points),
	})
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("persist analysis: %w", err)
	}
	observability.ObserveAnalysis(source, extraction)

	if s.cache != nil {
		if extraction == "genuine" {
			_ = s.cache.Set(ctx, key, toAnalysis(created, points, false), int(s.cacheTTL.Seconds()))
		}
		_ = s.cache.Del(ctx, listCacheKey)
	}
	return toAnalysis(created, points, false), nil
}

// ListReviews returns every stored analysis, newest first. A record whose
// key points fail to decode is kept in the listing with an empty list; a
// storage fault aborts the whole listing.
func (s *AnalysisService) ListReviews(ctx context.Context) ([]domain.Analysis, error) {
	if s.cache != nil {
		var out []domain.Analysis
		if ok, _ := s.cache.Get(ctx, listCacheKey, &out); ok {
			return out, nil
		}
	}

	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Analysis, 0, len(rows))
	for _, rv := range rows {
		pts, err := domain.DecodeKeyPoints(rv.KeyPointsRaw)
		if err != nil {
			log.Warn().Int64("id", rv.ID).Err(err).Msg("undecodable key points in listing")
			pts = []string{}
		}
		out = append(out, toAnalysis(rv, pts, false))
	}

	if s.cache != nil {
		if b, _ := json.Marshal(out); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, listCacheKey, out, int(s.cacheTTL.Seconds()))
		}
	}
	return out, nil
}

func toAnalysis(r domain.Review, points []string, cached bool) domain.Analysis {
	return domain.Analysis{
		ID:          r.ID,
		ProductName: r.ProductName,
		ReviewText:  r.ReviewText,
		Sentiment:   r.Sentiment,
		Confidence:  r.Confidence,
		KeyPoints:   points,
		CreatedAt:   r.CreatedAt,
		Cached:      cached,
	}
}

func cacheValid(points []string) bool {
	return len(points) > 0 && points[0] != domain.KeyPointsFailed
}

func textKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return "review:text:" + hex.EncodeToString(sum[:])
}
