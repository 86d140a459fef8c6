// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath           string
	EncryptionKey    string
	HTTPTimeout      time.Duration
	SchedulerEnabled bool
}

// HasEncryptionKey returns true when ROSTERSYNC_ENCRYPTION_KEY is set. The
// app starts without it, but credential storage and retrieval are rejected
// until the key is provided.
func (c *Config) HasEncryptionKey() bool {
	return c.EncryptionKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// ROSTERSYNC_ENCRYPTION_KEY is optional at startup; without it the vault refuses
// to store or decrypt credentials. Optional variables with defaults:
// ROSTERSYNC_DB_PATH (rostersync.db), ROSTERSYNC_HTTP_TIMEOUT (30s),
// ROSTERSYNC_SCHEDULER_ENABLED (true).
func Load() (*Config, error) {
	key := os.Getenv("ROSTERSYNC_ENCRYPTION_KEY")

	dbPath := "rostersync.db"
	if v, ok := os.LookupEnv("ROSTERSYNC_DB_PATH"); ok {
		dbPath = v
	}

	httpTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("ROSTERSYNC_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("ROSTERSYNC_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		httpTimeout = parsed
	}

	schedulerEnabled := true
	if v, ok := os.LookupEnv("ROSTERSYNC_SCHEDULER_ENABLED"); ok {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ROSTERSYNC_SCHEDULER_ENABLED has invalid boolean %q: %w", v, err)
		}
		schedulerEnabled = parsed
	}

	return &Config{
		DBPath:           dbPath,
		EncryptionKey:    key,
		HTTPTimeout:      httpTimeout,
		SchedulerEnabled: schedulerEnabled,
	}, nil
}
