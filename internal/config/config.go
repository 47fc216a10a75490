package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for configuration values.
const (
	DefaultDBPath        = "/data/reconciler.db"
	DefaultBatchTimeout  = 2 * time.Minute
	DefaultAliasReload   = 5 * time.Minute
	DefaultAlertCooldown = 15 * time.Minute
	DefaultLogLevel      = "info"
)

// Config holds all application configuration.
type Config struct {
	// Storage: DATABASE_URL selects Postgres; otherwise SQLite at DBPath.
	DatabaseURL string
	DBPath      string

	// Diagnostics: empty RedisAddr disables stream publishing.
	RedisAddr     string
	RedisPassword string

	AliasSeedPath string
	BatchTimeout  time.Duration
	AliasReload   time.Duration
	AlertCooldown time.Duration
	LogLevel      string
	ProplinesPath string
	GameLogsPath  string
}

// Load reads configuration from environment variables (and .env file if present).
func Load() Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DBPath:        DefaultDBPath,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AliasSeedPath: os.Getenv("ALIAS_SEED_PATH"),
		BatchTimeout:  DefaultBatchTimeout,
		AliasReload:   DefaultAliasReload,
		AlertCooldown: DefaultAlertCooldown,
		LogLevel:      DefaultLogLevel,
		ProplinesPath: os.Getenv("PROPLINES_PATH"),
		GameLogsPath:  os.Getenv("GAMELOGS_PATH"),
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if v := os.Getenv("BATCH_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.BatchTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("ALIAS_RELOAD_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.AliasReload = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("ALERT_COOLDOWN_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.AlertCooldown = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg Config) error {
	if cfg.DatabaseURL == "" && cfg.DBPath == "" {
		return fmt.Errorf("either DATABASE_URL or DB_PATH must be set")
	}
	if cfg.BatchTimeout < time.Second {
		return fmt.Errorf("BATCH_TIMEOUT_MS must be at least 1000ms, got %v", cfg.BatchTimeout)
	}
	if cfg.AliasReload < time.Second {
		return fmt.Errorf("ALIAS_RELOAD_MS must be at least 1000ms, got %v", cfg.AliasReload)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", cfg.LogLevel)
	}
	return nil
}
