package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"expensetracker/internal/log"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

var validBackends = []string{BackendSQLite, BackendMemory, BackendPostgres}

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Adds and clears allowed per client and route in each window
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string
	DataDir      string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Totals cache, opt-in; disabled when zero
	CacheTTL time.Duration

	// Mirror store kept in step by ledger-worker, disabled when MirrorBackend is empty
	MirrorBackend      string
	MirrorSQLiteDBPath string
	MirrorDatabaseURL  string
	SyncInterval       time.Duration

	LogLevel        string
	DefaultCategory string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", BackendSQLite)),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ledger.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DataDir:      getEnv("DATA_DIR", "./data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		CacheTTL: getEnvDuration("CACHE_TTL", 0),

		MirrorBackend:      strings.ToLower(getEnv("MIRROR_BACKEND", "")),
		MirrorSQLiteDBPath: getEnv("MIRROR_SQLITE_DB_PATH", "./data/mirror.db"),
		MirrorDatabaseURL:  getEnv("MIRROR_DATABASE_URL", ""),
		SyncInterval:       getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DefaultCategory: getEnv("DEFAULT_CATEGORY", "General"),
	}

	return cfg
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	case BackendMemory:
		if c.DataDir != "" {
			if info, err := os.Stat(c.DataDir); err == nil && !info.IsDir() {
				errors = append(errors, fmt.Sprintf("data directory '%s' is not a directory", c.DataDir))
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	} else if c.CacheTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at most 24 hours", c.CacheTTL))
	}

	switch c.MirrorBackend {
	case "":
	case BackendSQLite:
		if c.MirrorSQLiteDBPath == "" {
			errors = append(errors, "MIRROR_SQLITE_DB_PATH is required when MIRROR_BACKEND is sqlite")
		} else if c.DataBackend == BackendSQLite && filepath.Clean(c.MirrorSQLiteDBPath) == filepath.Clean(c.SQLiteDBPath) {
			errors = append(errors, "mirror database must differ from the primary SQLite database")
		}
	case BackendPostgres:
		if c.MirrorDatabaseURL == "" {
			errors = append(errors, "MIRROR_DATABASE_URL is required when MIRROR_BACKEND is postgres")
		} else if c.DataBackend == BackendPostgres && c.MirrorDatabaseURL == c.DatabaseURL {
			errors = append(errors, "mirror database must differ from the primary Postgres database")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid mirror backend '%s': must be sqlite or postgres", c.MirrorBackend))
	}

	if c.RateLimitRequests < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must allow at least 1 request", c.RateLimitRequests))
	}
	if c.RateLimitWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid rate limit window %v: must be at least 1 second", c.RateLimitWindow))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if strings.TrimSpace(c.DefaultCategory) == "" {
		errors = append(errors, "default category cannot be empty")
	} else if len(c.DefaultCategory) > 80 {
		errors = append(errors, "default category too long (max 80 characters)")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
