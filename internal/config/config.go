/*
Package config reads runtime settings from the environment. A .env file in the
working directory is loaded first when present.
*/
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// Config holds every setting the service reads at startup.
type Config struct {
	Port     int
	AppEnv   string
	LogLevel string

	// Gemini
	GeminiAPIKey         string
	GeminiAPIURL         string
	GeminiTimeout        time.Duration
	GeminiMaxAttempts    int
	GeminiInitialBackoff time.Duration

	// Recommendation cache
	CacheTTL  time.Duration
	CacheSize int

	// ForceRefreshPerMinute limits cache-bypassing requests per client IP.
	ForceRefreshPerMinute int

	// RefreshTrackedClients bounds how many client IPs the limiter remembers.
	RefreshTrackedClients int

	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string

	Database DatabaseConfig
}

// DatabaseConfig holds the connection settings for the cycle history store.
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	Schema   string
}

// Load builds a Config from environment variables. Missing or malformed
// numeric values fall back to their defaults.
func Load() Config {
	return Config{
		Port:     getInt("PORT", 8080),
		AppEnv:   getString("APP_ENV", "development"),
		LogLevel: getString("LOG_LEVEL", "info"),

		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiAPIURL:         os.Getenv("GEMINI_API_URL"),
		GeminiTimeout:        time.Duration(getInt("GEMINI_TIMEOUT_SECONDS", 10)) * time.Second,
		GeminiMaxAttempts:    getInt("GEMINI_MAX_ATTEMPTS", 3),
		GeminiInitialBackoff: time.Duration(getInt("GEMINI_INITIAL_BACKOFF_MS", 1000)) * time.Millisecond,

		CacheTTL:  time.Duration(getInt("RECOMMENDATION_CACHE_TTL_MINUTES", 30)) * time.Minute,
		CacheSize: getInt("RECOMMENDATION_CACHE_SIZE", 1024),

		ForceRefreshPerMinute: getInt("FORCE_REFRESH_PER_MINUTE", 6),
		RefreshTrackedClients: getInt("FORCE_REFRESH_TRACKED_CLIENTS", 4096),
		TrustedProxies:        getList("TRUSTED_PROXIES"),

		Database: DatabaseConfig{
			Host:     os.Getenv("BLUEPRINT_DB_HOST"),
			Port:     getString("BLUEPRINT_DB_PORT", "5432"),
			Name:     os.Getenv("BLUEPRINT_DB_DATABASE"),
			Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
			Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
			Schema:   getString("BLUEPRINT_DB_SCHEMA", "public"),
		},
	}
}

// IsProduction reports whether APP_ENV is "production".
func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// getList splits a comma-separated value, dropping blank items.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
