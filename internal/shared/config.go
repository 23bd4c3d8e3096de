package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv            string
	HTTPAddr          string
	MetricsAddr       string
	MySQLDSN          string
	RedisAddr         string
	RedisDB           int
	RedisPass         string
	HFBase            string
	HFToken           string
	GeminiBase        string
	GeminiKey         string
	GeminiModel       string
	ClassifierTimeout time.Duration
	ExtractorTimeout  time.Duration
	Workers           int
	CacheTTL          time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:            env("APP_ENV", "prod"),
		HTTPAddr:          env("HTTP_ADDR", ":6543"),
		MetricsAddr:       env("METRICS_ADDR", ":9100"),
		MySQLDSN:          env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:         env("REDIS_ADDR", "localhost:6379"),
		RedisPass:         env("REDIS_PASSWORD", ""),
		HFBase:            env("HF_API_URL", "https://api-inference.huggingface.co/models/cardiffnlp/twitter-roberta-base-sentiment-latest"),
		HFToken:           env("HUGGINGFACE_API_KEY", ""),
		GeminiBase:        env("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		GeminiKey:         env("GEMINI_API_KEY", ""),
		GeminiModel:       env("GEMINI_MODEL", "gemini-pro"),
		ClassifierTimeout: time.Duration(atoi("CLASSIFIER_TIMEOUT_SECONDS", 3)) * time.Second,
		ExtractorTimeout:  time.Duration(atoi("EXTRACTOR_TIMEOUT_SECONDS", 20)) * time.Second,
		Workers:           atoi("BACKFILL_WORKERS", 8),
		CacheTTL:          time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.HFToken == "" {
		log.Warn().Msg("HUGGINGFACE_API_KEY is empty")
	}
	if c.GeminiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
