package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"review_analyzer/internal/adapters/gemini"
	server "review_analyzer/internal/adapters/http_server"
	"review_analyzer/internal/adapters/huggingface"
	"review_analyzer/internal/adapters/lexicon"
	"review_analyzer/internal/adapters/observability"
	redisad "review_analyzer/internal/adapters/redis"
	"review_analyzer/internal/app"
	"review_analyzer/internal/shared"
	mysqlrepo "review_analyzer/internal/storage/mysql"
)

func main() {
	_ = godotenv.Load()
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
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

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{S: svc})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
