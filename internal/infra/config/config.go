package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL           string
	HTTPAddr              string
	LogLevel              string
	Environment           string
	CronSpecExpiryCheck   string // Daily expiration scan
	Location              *time.Location
	RunTimeout            time.Duration
	DispatchConcurrency   int
	DispatchRatePerSecond int
	RedisURL              string // Optional, enables the cross-instance run lock
	RunLockTTL            time.Duration
	AdminAPIToken         string // Optional bearer token for the admin API
	TelegramToken         string // Optional, enables operator alerts
	AdminTelegramID       int64
	EmailDryRun           bool // Log sends instead of calling the provider
}

// TelegramEnabled reports whether operator alerts should be wired.
func (c *AppConfig) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = envOr("HTTP_ADDR", ":8080")
	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(envOr("ENVIRONMENT", "development"))
	cfg.CronSpecExpiryCheck = envOr("CRON_SPEC_EXPIRATION_CHECK", "0 9 * * *") // Default: 9 AM daily

	tz := envOr("TIMEZONE", "Local")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg.RunTimeout, err = durationEnv("RUN_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.RunLockTTL, err = durationEnv("RUN_LOCK_TTL", 2*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg.DispatchConcurrency, err = positiveIntEnv("DISPATCH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	cfg.DispatchRatePerSecond, err = positiveIntEnv("DISPATCH_RATE_PER_SEC", 5)
	if err != nil {
		return nil, err
	}

	cfg.EmailDryRun, err = boolEnv("EMAIL_DRY_RUN", false)
	if err != nil {
		return nil, err
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.AdminAPIToken = os.Getenv("ADMIN_API_TOKEN")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
		if adminIDStr == "" {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
		}
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, raw)
	}
	return d, nil
}

func positiveIntEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return b, nil
}
