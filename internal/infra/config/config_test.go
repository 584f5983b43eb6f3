package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/courses")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "0 9 * * *", cfg.CronSpecExpiryCheck)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, 30*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 4, cfg.DispatchConcurrency)
	assert.Equal(t, 5, cfg.DispatchRatePerSecond)
	assert.False(t, cfg.EmailDryRun)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/courses")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("RUN_TIMEOUT", "5m")
	t.Setenv("DISPATCH_CONCURRENCY", "8")
	t.Setenv("EMAIL_DRY_RUN", "true")
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("ADMIN_TELEGRAM_ID", "42")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", cfg.Location.String())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Equal(t, 8, cfg.DispatchConcurrency)
	assert.True(t, cfg.EmailDryRun)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, int64(42), cfg.AdminTelegramID)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing database url", env: map[string]string{"DATABASE_URL": ""}},
		{name: "bad timezone", env: map[string]string{"TIMEZONE": "Mars/Olympus"}},
		{name: "bad duration", env: map[string]string{"RUN_TIMEOUT": "-1s"}},
		{name: "bad concurrency", env: map[string]string{"DISPATCH_CONCURRENCY": "0"}},
		{name: "bad dry run flag", env: map[string]string{"EMAIL_DRY_RUN": "maybe"}},
		{name: "telegram without admin", env: map[string]string{"TELEGRAM_TOKEN": "123:abc", "ADMIN_TELEGRAM_ID": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/courses")
			t.Setenv("TIMEZONE", "UTC")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
