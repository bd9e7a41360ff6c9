// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Storage
	DatabaseURL string

	// Analysis (Gemini). Empty key disables analysis; discovery still runs.
	GeminiAPIKey      string
	GeminiModel       string
	MaxAnalysisPerRun int // per pipeline run (0 = unlimited)
	MaxAnalysisPerDay int // daily budget across runs (0 = unlimited)

	// Discovery defaults
	DefaultLanguage     string
	DefaultCountry      string
	SitesConfigPath     string
	LookbackCeilingDays int

	// Provider fetch behavior
	FetchTimeout    time.Duration
	RetryAttempts   int
	RetryDelay      time.Duration
	TierParallelism int
	FeedCacheTTL    time.Duration

	// Scheduler
	TickInterval  time.Duration
	MinRunSpacing time.Duration
	RunBudget     time.Duration // wall-clock cap for one pipeline run
	QuotaTimezone string

	// Notifications (optional)
	TelegramToken  string
	TelegramChatID string

	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:         "gemini-1.5-flash",
		MaxAnalysisPerRun:   25,
		MaxAnalysisPerDay:   200,
		DefaultLanguage:     "es-419",
		DefaultCountry:      "MX",
		SitesConfigPath:     "configs/sites.yaml",
		LookbackCeilingDays: 90,
		FetchTimeout:        15 * time.Second,
		RetryAttempts:       2,
		RetryDelay:          2 * time.Second,
		TierParallelism:     4,
		FeedCacheTTL:        30 * time.Minute,
		TickInterval:        time.Hour,
		MinRunSpacing:       4 * time.Hour,
		RunBudget:           2 * time.Minute,
		QuotaTimezone:       "UTC",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.DefaultLanguage = getEnvOrDefault("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.DefaultCountry = getEnvOrDefault("DEFAULT_COUNTRY", cfg.DefaultCountry)
	cfg.SitesConfigPath = getEnvOrDefault("SITES_CONFIG_PATH", cfg.SitesConfigPath)
	cfg.QuotaTimezone = getEnvOrDefault("QUOTA_TIMEZONE", cfg.QuotaTimezone)

	cfg.MaxAnalysisPerRun = getEnvIntOrDefault("MAX_ANALYSIS_PER_RUN", cfg.MaxAnalysisPerRun)
	cfg.MaxAnalysisPerDay = getEnvIntOrDefault("MAX_ANALYSIS_PER_DAY", cfg.MaxAnalysisPerDay)
	cfg.LookbackCeilingDays = getEnvIntOrDefault("LOOKBACK_CEILING_DAYS", cfg.LookbackCeilingDays)
	cfg.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.TierParallelism = getEnvIntOrDefault("TIER_PARALLELISM", cfg.TierParallelism)

	cfg.FetchTimeout = getEnvDurationOrDefault("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", cfg.RetryDelay)
	cfg.FeedCacheTTL = getEnvDurationOrDefault("FEED_CACHE_TTL", cfg.FeedCacheTTL)
	cfg.TickInterval = getEnvDurationOrDefault("TICK_INTERVAL", cfg.TickInterval)
	cfg.MinRunSpacing = getEnvDurationOrDefault("MIN_RUN_SPACING", cfg.MinRunSpacing)
	cfg.RunBudget = getEnvDurationOrDefault("RUN_BUDGET", cfg.RunBudget)

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := time.LoadLocation(c.QuotaTimezone); err != nil {
		return fmt.Errorf("QUOTA_TIMEZONE %q is not a valid timezone: %w", c.QuotaTimezone, err)
	}
	if c.TierParallelism < 1 {
		return fmt.Errorf("TIER_PARALLELISM must be at least 1")
	}
	if c.LookbackCeilingDays < 1 {
		return fmt.Errorf("LOOKBACK_CEILING_DAYS must be at least 1")
	}
	if c.MinRunSpacing <= 0 || c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL and MIN_RUN_SPACING must be positive")
	}
	return nil
}
