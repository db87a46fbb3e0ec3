package config

import (
	"log"

	"github.com/joho/godotenv"

	pkgconfig "github.com/Skotchmaster/shopeasy/pkg/config"
)

const (
	BackendCookie = "cookie"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// Load reads envFile when present, then the environment, and exits on a
// configuration the storefront cannot start with.
func Load(envFile string) pkgconfig.Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("warning: could not load .env: %v", err)
		}
	}

	cfg := pkgconfig.Load()

	pkgconfig.MustNonEmpty(cfg.APIBaseURL, "API_BASE_URL")
	pkgconfig.MustOneOf(cfg.SessionBackend, "SESSION_BACKEND", BackendCookie, BackendRedis, BackendSQL, BackendMemory)
	switch cfg.SessionBackend {
	case BackendRedis:
		pkgconfig.MustNonEmpty(cfg.RedisURL, "REDIS_URL")
	case BackendSQL:
		pkgconfig.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	}
	return cfg
}
