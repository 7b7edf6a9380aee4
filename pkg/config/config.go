// Package config loads stockledger settings from the environment and an
// optional config.env file. Environment variables win over the file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config groups all settings.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Lock      LockConfig
	Numbering NumberingConfig
	UnitCache UnitCacheConfig
}

// AppConfig holds general settings.
type AppConfig struct {
	Env      string // development, staging, production
	LogLevel string
	Storage  string // memory or postgres
}

// Development reports whether logs should be human readable.
func (c AppConfig) Development() bool {
	return c.Env == "development"
}

// DBConfig holds PostgreSQL settings.
type DBConfig struct {
	URL              string
	MaxConns         int32
	MinConns         int32
	StatementTimeout time.Duration
}

// RedisConfig holds Redis settings. An empty Addr disables Redis: locks
// fall back to in-process mutexes and units are read uncached.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// LockConfig tunes distributed lock acquisition.
type LockConfig struct {
	TTL          time.Duration
	RetryCount   int
	RetryBackoff time.Duration
}

// NumberingConfig selects the reference number strategy.
type NumberingConfig struct {
	Strategy  string // strict or cached
	RangeSize int64
}

// UnitCacheConfig controls the Redis unit cache.
type UnitCacheConfig struct {
	TTL time.Duration
}

// Option adjusts the viper instance before values are read.
type Option func(v *viper.Viper)

// WithOverride forces key to value regardless of file or environment.
func WithOverride(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// Load reads configuration. Missing config.env is not an error.
func Load(opts ...Option) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for _, opt := range opts {
		opt(v)
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
			Storage:  strings.ToLower(v.GetString("STORAGE")),
		},
		DB: DBConfig{
			URL:              v.GetString("DATABASE_URL"),
			MaxConns:         v.GetInt32("DB_MAX_CONNS"),
			MinConns:         v.GetInt32("DB_MIN_CONNS"),
			StatementTimeout: v.GetDuration("STATEMENT_TIMEOUT"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Lock: LockConfig{
			TTL:          v.GetDuration("LOCK_TTL"),
			RetryCount:   v.GetInt("LOCK_RETRY_COUNT"),
			RetryBackoff: v.GetDuration("LOCK_RETRY_BACKOFF"),
		},
		Numbering: NumberingConfig{
			Strategy:  strings.ToLower(v.GetString("NUMBERING_STRATEGY")),
			RangeSize: v.GetInt64("NUMBERING_RANGE_SIZE"),
		},
		UnitCache: UnitCacheConfig{
			TTL: v.GetDuration("UNIT_CACHE_TTL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE", StoragePostgres)

	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("STATEMENT_TIMEOUT", 30*time.Second)

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOCK_TTL", 10*time.Second)
	v.SetDefault("LOCK_RETRY_COUNT", 50)
	v.SetDefault("LOCK_RETRY_BACKOFF", 200*time.Millisecond)

	v.SetDefault("NUMBERING_STRATEGY", "strict")
	v.SetDefault("NUMBERING_RANGE_SIZE", 50)

	v.SetDefault("UNIT_CACHE_TTL", time.Hour)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.App.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DB.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s storage", StoragePostgres)
		}
	default:
		return fmt.Errorf("unknown STORAGE %q (want %s or %s)", c.App.Storage, StorageMemory, StoragePostgres)
	}

	switch c.Numbering.Strategy {
	case "strict", "cached":
	default:
		return fmt.Errorf("unknown NUMBERING_STRATEGY %q", c.Numbering.Strategy)
	}
	if c.Numbering.RangeSize <= 0 {
		return fmt.Errorf("NUMBERING_RANGE_SIZE must be positive")
	}
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	return nil
}
