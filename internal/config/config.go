// Package config loads the accrual engine's runtime configuration from
// YAML plus environment overrides, validated with go-playground/validator.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fourgeeks/accrual-engine/internal/validator"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration is the root configuration object, assembled by NewConfig.
type Configuration struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Postgres  PostgresConfig  `mapstructure:"postgres" validate:"required"`
	Logging   LoggingConfig   `mapstructure:"logging" validate:"required"`
	LMS       LMSConfig       `mapstructure:"lms" validate:"required"`
	Invoicing InvoicingConfig `mapstructure:"invoicing" validate:"required"`
	Batch     BatchConfig     `mapstructure:"batch" validate:"required"`
	Sentry    SentryConfig    `mapstructure:"sentry" validate:"omitempty"`
}

// ServerConfig configures the thin HTTP entrypoint (internal/api).
type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

// PostgresConfig configures the sqlx/lib-pq connection pool.
type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password" validate:"required"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
	// ConnectMaxRetries bounds the exponential-backoff retries NewDB
	// performs against a not-yet-ready Postgres (spec.md SS6: the engine
	// runs as a server that must survive starting up before its database
	// does, e.g. in a freshly rolled-out stack).
	ConnectMaxRetries int `mapstructure:"connect_max_retries"`
	// SerializationMaxRetries bounds how many times DB.WithTx re-runs a
	// top-level transaction that Postgres aborted with a serialization
	// or deadlock conflict (SQLSTATE 40001/40P01), which concurrent
	// batch runs over overlapping contracts can trigger (spec.md SS5).
	SerializationMaxRetries int `mapstructure:"serialization_max_retries"`
}

// GetDSN builds the libpq connection string for PostgresConfig.
func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User, c.Password, c.DBName, c.Host, c.Port, c.SSLMode,
	)
}

// LoggingConfig configures the zap logger's minimum level.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required"`
}

// LMSConfig configures the reconciler's HTTP client (spec.md SS4.6, SS6).
type LMSConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required"`
	APIKey         string `mapstructure:"api_key" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// InvoicingConfig configures read-only access to the invoicing system
// (spec.md SS6).
type InvoicingConfig struct {
	BaseURL        string `mapstructure:"base_url" validate:"required"`
	APIKey         string `mapstructure:"api_key" validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// BatchConfig tunes the batch driver's candidate scan (spec.md SS4.7,
// SS5: single-threaded cooperative processing per batch).
type BatchConfig struct {
	PageSize int `mapstructure:"page_size"`
	// RecentContractCutoffOverrideYear lets operators pin the "current
	// target year" used by the recent-contract rule (spec.md SS4.7, SS9:
	// the cutoff compares against month_end, not wall clock, and is
	// otherwise derived purely from the target month already).
	RecentContractCutoffOverrideYear int `mapstructure:"recent_contract_cutoff_override_year"`
}

// SentryConfig configures panic/error reporting around per-contract
// processing (spec.md SS4.7.9).
type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// NewConfig loads configuration from ./config/config.yaml (or
// ./internal/config/config.yaml), overridable via ACCRUAL_-prefixed
// environment variables, and a local .env file.
func NewConfig() (*Configuration, error) {
	v := viper.New()

	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("ACCRUAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("postgres.connect_max_retries", 5)
	v.SetDefault("postgres.serialization_max_retries", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("lms.timeout_seconds", 10)
	v.SetDefault("invoicing.timeout_seconds", 10)
	v.SetDefault("batch.page_size", 100)
	v.SetDefault("sentry.sample_rate", 1.0)
}

// Validate runs struct-tag validation over the whole configuration.
func (c Configuration) Validate() error {
	return validator.ValidateRequest(c)
}
