// Command backfill re-analyzes stored reviews whose key points are poisoned
// (undecodable, empty, or sentinel-marked). Each re-analysis goes through the
// regular orchestrator path and appends a fresh row; the old row stays but is
// shadowed by the newer one on lookups.
package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_analyzer/internal/adapters/gemini"
	"review_analyzer/internal/adapters/huggingface"
	"review_analyzer/internal/adapters/lexicon"
	"review_analyzer/internal/adapters/observability"
	redisad "review_analyzer/internal/adapters/redis"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/shared"
	mysqlrepo "review_analyzer/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	_ = godotenv.Load()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.Workers).
		Msg("backfill starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	classifier, err := huggingface.New(cfg.HFBase, cfg.HFToken, cfg.ClassifierTimeout, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize classifier client")
	}
	extractor, err := gemini.New(cfg.GeminiBase, cfg.GeminiModel, cfg.GeminiKey, cfg.ExtractorTimeout, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize extractor client")
	}
	svc := app.NewAnalysisService(repo, classifier, extractor, lexicon.Estimate, cache, cfg.CacheTTL)

	rows, err := repo.ListAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list reviews failed")
	}

	// Deduplicate by text: several poisoned rows for the same review only
	// need one fresh analysis, and later calls become cache hits anyway.
	seen := map[string]bool{}
	var poisoned []domain.Review
	for _, rv := range rows {
		if rv.CacheValid() || seen[rv.ReviewText] {
			continue
		}
		seen[rv.ReviewText] = true
		poisoned = append(poisoned, rv)
	}
	log.Info().Int("total", len(rows)).Int("poisoned", len(poisoned)).Msg("scan complete")

	sem := semaphore.NewWeighted(int64(cfg.Workers))
	var wg sync.WaitGroup

	for _, rv := range poisoned {
		rv := rv

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(rv domain.Review) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := svc.AnalyzeReview(ctx, rv.ProductName, rv.ReviewText)
			if err != nil {
				log.Warn().Int64("id", rv.ID).Err(err).Msg("re-analysis failed")
				return
			}
			if len(res.KeyPoints) > 0 && res.KeyPoints[0] == domain.KeyPointsFailed {
				log.Warn().Int64("id", rv.ID).Int64("new_id", res.ID).Msg("re-analysis still degraded")
				return
			}
			log.Info().Int64("id", rv.ID).Int64("new_id", res.ID).Msg("re-analysis ok")
		}(rv)
	}

	wg.Wait()
	log.Info().Msg("backfill completed")
}
