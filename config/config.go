// Package config loads application configuration from environment
// variables, with an optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/rota-engine/rota"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	Port        int
	DBPath      string
	LogLevel    string
	Environment string

	// SiteTimezone is the IANA zone used for daylight-saving detection.
	SiteTimezone string

	// Timezone descriptor, minutes west of UTC.
	TimezoneBias         int
	TimezoneDaylightBias int
	TimezoneStandardBias int

	// WeekStart is the default week-numbering convention.
	WeekStart rota.WeekStartDay

	// AutoFillCron is the schedule for the nightly batch auto-fill.
	// Empty disables the scheduler.
	AutoFillCron string

	// BatchPause is the wait between successive staff members in a batch.
	BatchPause time.Duration

	// PersistDelay is the pause between consecutive record writes.
	PersistDelay time.Duration
}

// Load reads configuration from environment variables and .env (if present).
// godotenv.Load does not override variables already set in the environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:         8080,
		DBPath:       "rota.db",
		LogLevel:     "info",
		Environment:  "development",
		SiteTimezone: "UTC",
		WeekStart:    rota.WeekStartMonday,
		AutoFillCron: "0 2 1 * *", // 02:00 on the 1st of each month
		BatchPause:   3 * time.Second,
		PersistDelay: 50 * time.Millisecond,
	}

	var err error
	if cfg.Port, err = intEnv("PORT", cfg.Port); err != nil {
		return nil, err
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("SITE_TIMEZONE"); v != "" {
		cfg.SiteTimezone = v
	}
	if v := os.Getenv("AUTOFILL_CRON"); v != "" {
		cfg.AutoFillCron = v
	}

	if cfg.TimezoneBias, err = intEnv("TZ_BIAS", 0); err != nil {
		return nil, err
	}
	if cfg.TimezoneDaylightBias, err = intEnv("TZ_DAYLIGHT_BIAS", 0); err != nil {
		return nil, err
	}
	if cfg.TimezoneStandardBias, err = intEnv("TZ_STANDARD_BIAS", 0); err != nil {
		return nil, err
	}

	weekStart, err := intEnv("WEEK_START_DAY", int(cfg.WeekStart))
	if err != nil {
		return nil, err
	}
	cfg.WeekStart = rota.WeekStartDay(weekStart)
	if !cfg.WeekStart.Valid() {
		return nil, fmt.Errorf("invalid WEEK_START_DAY %d: must be 1 (monday), 6 (saturday) or 7 (sunday)", weekStart)
	}

	pauseMs, err := intEnv("BATCH_PAUSE_MS", int(cfg.BatchPause/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.BatchPause = time.Duration(pauseMs) * time.Millisecond

	delayMs, err := intEnv("PERSIST_DELAY_MS", int(cfg.PersistDelay/time.Millisecond))
	if err != nil {
		return nil, err
	}
	cfg.PersistDelay = time.Duration(delayMs) * time.Millisecond

	return cfg, nil
}

// Descriptor returns the configured timezone descriptor.
func (c *AppConfig) Descriptor() rota.TimeZoneDescriptor {
	return rota.TimeZoneDescriptor{
		Bias:         c.TimezoneBias,
		DaylightBias: c.TimezoneDaylightBias,
		StandardBias: c.TimezoneStandardBias,
	}
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
