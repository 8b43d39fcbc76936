package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the cropwise server.
type Config struct {
	Server    ServerConfig
	Model     ModelConfig
	Knowledge KnowledgeConfig
	Ledger    LedgerConfig
	Redis     RedisConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type ModelConfig struct {
	Path string
}

type KnowledgeConfig struct {
	Path string
}

type LedgerConfig struct {
	Driver        string
	SQLitePath    string
	Database      DatabaseConfig
	AppendTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional. An empty URL disables caching and rate limiting.
type RedisConfig struct {
	URL                string
	RateLimitPerMinute int
	PredictionCacheTTL time.Duration
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool { return r.URL != "" }

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("CROPWISE_PORT", 8080),
			Env:  envString("CROPWISE_ENV", "development"),
		},
		Model: ModelConfig{
			Path: envString("MODEL_PATH", "model.json"),
		},
		Knowledge: KnowledgeConfig{
			Path: envString("CROP_DETAILS_PATH", "crop_details.json"),
		},
		Ledger: LedgerConfig{
			Driver:     strings.ToLower(envString("LEDGER_DRIVER", DriverSQLite)),
			SQLitePath: envString("SQLITE_PATH", "predictions.db"),
			Database: DatabaseConfig{
				URL:             os.Getenv("DATABASE_URL"),
				MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			},
			AppendTimeout: envDuration("LEDGER_APPEND_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:                os.Getenv("REDIS_URL"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
			PredictionCacheTTL: envDuration("PREDICTION_CACHE_TTL", 10*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("CROPWISE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Model.Path == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}

	switch c.Ledger.Driver {
	case DriverSQLite:
		if c.Ledger.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when LEDGER_DRIVER is sqlite")
		}
	case DriverPostgres:
		if c.Ledger.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when LEDGER_DRIVER is postgres")
		}
		if !strings.HasPrefix(c.Ledger.Database.URL, "postgres://") && !strings.HasPrefix(c.Ledger.Database.URL, "postgresql://") {
			return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
		}
	default:
		return fmt.Errorf("LEDGER_DRIVER must be one of sqlite, postgres; got %q", c.Ledger.Driver)
	}

	if c.Ledger.AppendTimeout <= 0 {
		return fmt.Errorf("LEDGER_APPEND_TIMEOUT must be positive")
	}

	if c.Redis.Enabled() && !strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
