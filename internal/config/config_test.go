package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvFile(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("API_TIMEOUT", "")
	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("SESSION_BACKEND")
	os.Unsetenv("REDIS_URL")
	os.Unsetenv("API_TIMEOUT")

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("API_BASE_URL=http://backend:8000/api\nSESSION_BACKEND=Redis\nREDIS_URL=redis://cache:6379/0\nAPI_TIMEOUT=2s\n"), 0o600))

	cfg := Load(env)
	assert.Equal(t, "http://backend:8000/api", cfg.APIBaseURL)
	assert.Equal(t, BackendRedis, cfg.SessionBackend)
	assert.Equal(t, "redis://cache:6379/0", cfg.RedisURL)
	assert.Equal(t, 2*time.Second, cfg.APITimeout)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://from-env/api")
	t.Setenv("SESSION_BACKEND", "memory")

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("API_BASE_URL=http://from-file/api\n"), 0o600))

	cfg := Load(env)
	assert.Equal(t, "http://from-env/api", cfg.APIBaseURL)
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
}

func TestLoad_MissingEnvFileIsTolerated(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://x/api")
	t.Setenv("SESSION_BACKEND", "cookie")

	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, BackendCookie, cfg.SessionBackend)
}
