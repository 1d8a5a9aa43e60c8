// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults for optional settings.
const (
	DefaultRedisURL     = "redis://localhost:6379"
	DefaultDataFile     = "data/articles.json"
	DefaultPollInterval = 5 * time.Minute
)

type Config struct {
	AppEnv           string
	Port             string
	LogLevel         string
	LogFormat        string
	RedisURL         string
	DatabaseURL      string
	DataFile         string
	SessionSecret    string
	FeedURLs         []string
	PollInterval     time.Duration
	SocialWebhookURL string
	StreamMaxConns   int64
	StreamMaxPerIP   int
	StreamRatePerSec float64
	StreamRateBurst  int
}

// Load reads configuration from the environment. The Redis backend is
// optional: an empty REDIS_URL falls back to the default local endpoint and
// an unreachable Redis only degrades the cache, it never blocks startup.
func Load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		AppEnv:           envOr(getenv, "APP_ENV", "development"),
		Port:             envOr(getenv, "PORT", "8080"),
		LogLevel:         envOr(getenv, "LOG_LEVEL", "info"),
		LogFormat:        envOr(getenv, "LOG_FORMAT", "text"),
		RedisURL:         envOr(getenv, "REDIS_URL", DefaultRedisURL),
		DatabaseURL:      getenv("DATABASE_URL"),
		DataFile:         envOr(getenv, "DATA_FILE", DefaultDataFile),
		SessionSecret:    getenv("SESSION_SECRET"),
		SocialWebhookURL: getenv("SOCIAL_WEBHOOK_URL"),
	}

	if feeds := getenv("FEED_URLS"); feeds != "" {
		for _, u := range strings.Split(feeds, ",") {
			if trimmed := strings.TrimSpace(u); trimmed != "" {
				cfg.FeedURLs = append(cfg.FeedURLs, trimmed)
			}
		}
	}

	interval, err := durationOr(getenv, "POLL_INTERVAL", DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	cfg.PollInterval = interval

	maxConns, err := intOr(getenv, "STREAM_MAX_CONNECTIONS", 1000)
	if err != nil {
		return nil, err
	}
	cfg.StreamMaxConns = int64(maxConns)

	maxPerIP, err := intOr(getenv, "STREAM_MAX_PER_IP", 10)
	if err != nil {
		return nil, err
	}
	cfg.StreamMaxPerIP = maxPerIP

	ratePerSec, err := floatOr(getenv, "STREAM_RATE_PER_SECOND", 5)
	if err != nil {
		return nil, err
	}
	cfg.StreamRatePerSec = ratePerSec

	burst, err := intOr(getenv, "STREAM_RATE_BURST", 10)
	if err != nil {
		return nil, err
	}
	cfg.StreamRateBurst = burst

	if cfg.SessionSecret == "" {
		if cfg.AppEnv == "production" {
			return nil, fmt.Errorf("SESSION_SECRET is required in production")
		}
		cfg.SessionSecret = "dev-insecure-session-secret"
	}

	if cfg.PollInterval < time.Second {
		return nil, fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", cfg.PollInterval)
	}

	return cfg, nil
}

func envOr(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationOr(getenv func(string) string, key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}

func intOr(getenv func(string) string, key string, defaultValue int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func floatOr(getenv func(string) string, key string, defaultValue float64) (float64, error) {
	raw := getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}
