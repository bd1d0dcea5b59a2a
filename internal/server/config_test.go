package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigFromEnvDefaults(t *testing.T) {
	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 1000, cfg.HistoryLimit)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
}

func TestNewConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com,https://beta.example.com")
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")

	cfg, err := NewConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Port)
	assert.Equal(t, []string{"https://chat.example.com", "https://beta.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, int64(1024), cfg.MaxMessageSize)
	assert.Equal(t, 3, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
}

func TestNewConfigFromEnvRejectsInvalidValues(t *testing.T) {
	t.Setenv("HISTORY_LIMIT", "-5")

	_, err := NewConfigFromEnv()
	assert.Error(t, err)
}

func TestSetConfigSanitizesZeroValues(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{})
	cfg := currentConfig()

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "static", cfg.StaticDir)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
}

func TestSetConfigNormalizesOrigins(t *testing.T) {
	t.Cleanup(func() { SetConfig(nil) })

	SetConfig(&Config{
		AllowedOrigins: []string{" HTTPS://Chat.Example.COM ", "not a url", ""},
	})

	cfg := currentConfig()
	assert.Equal(t, []string{"https://chat.example.com"}, cfg.AllowedOrigins)
}
