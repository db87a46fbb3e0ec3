package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SERVICE_NAME", "SERVER_PORT", "API_BASE_URL", "API_TIMEOUT", "SESSION_BACKEND", "KAFKA_BROKERS", "CATALOG_CACHE_TTL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "storefront", cfg.ServiceName)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, 5*time.Second, cfg.APITimeout)
	assert.Equal(t, "cookie", cfg.SessionBackend)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.Nil(t, cfg.KafkaBrokers)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("API_BASE_URL", "http://backend:8000/api/v1")
	t.Setenv("API_TIMEOUT", "2s")
	t.Setenv("SESSION_BACKEND", "REDIS")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")

	cfg := Load()
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "http://backend:8000/api/v1", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.APITimeout)
	assert.Equal(t, "redis", cfg.SessionBackend)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestEnvHelpers_FallBackOnGarbage(t *testing.T) {
	t.Setenv("X_INT", "abc")
	t.Setenv("X_DUR", "soon")
	t.Setenv("X_BOOL", "maybe")

	assert.Equal(t, 7, EnvIntDefault("X_INT", 7))
	assert.Equal(t, time.Minute, EnvDurationDefault("X_DUR", time.Minute))
	assert.False(t, EnvBoolDefault("X_BOOL", false))
}
