package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv(configFileEnvName, "")
	t.Setenv("HTTP_ADDR", "")
	cfg := FromEnv()

	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL)
	assert.NotEmpty(t, cfg.CORSAllowedOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(configFileEnvName, "")
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("FRONTEND_URL", "http://front.test")

	cfg := FromEnv()

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test", "http://front.test"}, cfg.CORSAllowedOrigins)
}

func TestFromEnvInvalidDurationFallsBack(t *testing.T) {
	t.Setenv(configFileEnvName, "")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	cfg := FromEnv()
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestClientFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("API_BASE_URL: http://shop.test/api/\nREQUEST_MAX_RETRIES: 5\n"), 0o600))
	t.Setenv(configFileEnvName, path)

	cfg := ClientFromEnv()

	assert.Equal(t, "http://shop.test/api", cfg.APIBaseURL)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}
