package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "GEMINI_API_KEY", "GEMINI_API_URL",
		"GEMINI_TIMEOUT_SECONDS", "GEMINI_MAX_ATTEMPTS", "GEMINI_INITIAL_BACKOFF_MS",
		"RECOMMENDATION_CACHE_TTL_MINUTES", "RECOMMENDATION_CACHE_SIZE",
		"FORCE_REFRESH_PER_MINUTE", "FORCE_REFRESH_TRACKED_CLIENTS", "TRUSTED_PROXIES",
		"BLUEPRINT_DB_PORT", "BLUEPRINT_DB_SCHEMA",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 10*time.Second, cfg.GeminiTimeout)
	assert.Equal(t, 3, cfg.GeminiMaxAttempts)
	assert.Equal(t, time.Second, cfg.GeminiInitialBackoff)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 1024, cfg.CacheSize)
	assert.Equal(t, 4096, cfg.RefreshTrackedClients)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "public", cfg.Database.Schema)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("GEMINI_API_KEY", "secret")
	t.Setenv("GEMINI_MAX_ATTEMPTS", "5")
	t.Setenv("RECOMMENDATION_CACHE_TTL_MINUTES", "5")
	t.Setenv("BLUEPRINT_DB_HOST", "db.internal")
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8, ,192.168.1.1/32")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "secret", cfg.GeminiAPIKey)
	assert.Equal(t, 5, cfg.GeminiMaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1/32"}, cfg.TrustedProxies)
}

func TestLoad_MalformedNumbersUseDefaults(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("GEMINI_TIMEOUT_SECONDS", "-4")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.GeminiTimeout)
}
