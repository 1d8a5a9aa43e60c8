package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getenvFrom(env map[string]string) func(string) string {
	return func(key string) string { return env[key] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(getenvFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, DefaultRedisURL, cfg.RedisURL)
	assert.Equal(t, DefaultDataFile, cfg.DataFile)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Empty(t, cfg.FeedURLs)
	assert.Equal(t, int64(1000), cfg.StreamMaxConns)
	assert.Equal(t, 10, cfg.StreamMaxPerIP)
}

func TestLoad_FeedURLsParsed(t *testing.T) {
	cfg, err := Load(getenvFrom(map[string]string{
		"FEED_URLS": "https://a.example/rss, https://b.example/rss ,,https://c.example/rss",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://a.example/rss",
		"https://b.example/rss",
		"https://c.example/rss",
	}, cfg.FeedURLs)
}

func TestLoad_PollInterval(t *testing.T) {
	cfg, err := Load(getenvFrom(map[string]string{"POLL_INTERVAL": "30s"}))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)

	_, err = Load(getenvFrom(map[string]string{"POLL_INTERVAL": "oops"}))
	require.Error(t, err)

	_, err = Load(getenvFrom(map[string]string{"POLL_INTERVAL": "500ms"}))
	require.Error(t, err)
}

func TestLoad_SessionSecret(t *testing.T) {
	cfg, err := Load(getenvFrom(nil))
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.SessionSecret)

	_, err = Load(getenvFrom(map[string]string{"APP_ENV": "production"}))
	require.Error(t, err)

	cfg, err = Load(getenvFrom(map[string]string{
		"APP_ENV":        "production",
		"SESSION_SECRET": "super-secret",
	}))
	require.NoError(t, err)
	assert.Equal(t, "super-secret", cfg.SessionSecret)
}

func TestLoad_StreamLimitOverrides(t *testing.T) {
	cfg, err := Load(getenvFrom(map[string]string{
		"STREAM_MAX_CONNECTIONS": "50",
		"STREAM_MAX_PER_IP":      "2",
		"STREAM_RATE_PER_SECOND": "1.5",
		"STREAM_RATE_BURST":      "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, int64(50), cfg.StreamMaxConns)
	assert.Equal(t, 2, cfg.StreamMaxPerIP)
	assert.Equal(t, 1.5, cfg.StreamRatePerSec)
	assert.Equal(t, 3, cfg.StreamRateBurst)

	_, err = Load(getenvFrom(map[string]string{"STREAM_MAX_CONNECTIONS": "many"}))
	require.Error(t, err)
}
