// Package config defines the global configuration structure for the Tanaw
// service. Configuration is loaded once at process startup and is immutable
// thereafter, following 12-Factor principles: values come from the OS
// environment, optionally seeded from a .env file for local development.
//
// Any missing required value or invalid format fails the process immediately
// on startup.
package config

import (
	"time"

	"tanaw/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"tanaw-service"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Domain Configurations
	Server   ServerConfig
	Database DatabaseConfig
	AWS      AWSConfig
	Weather  WeatherConfig
	Alerting AlertingConfig
	Archive  ArchiveConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"20s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"ap-southeast-1"`

	// Push fan-out queue for hazard reports and alert broadcasts.
	PushQueueURL string `envconfig:"SQS_PUSH_QUEUE" validate:"required,url"`

	// LocalStack support (empty in prod).
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// WeatherConfig holds the upstream hourly forecast provider settings.
type WeatherConfig struct {
	BaseURL string        `envconfig:"WEATHER_BASE_URL" validate:"required,url"`
	APIKey  SecretString  `envconfig:"WEATHER_API_KEY" validate:"required"`
	Timeout time.Duration `envconfig:"WEATHER_TIMEOUT" default:"10s"`
}

// AlertingConfig tunes the evaluation pipeline.
type AlertingConfig struct {
	// Hours before the event at which a scheduled notification fires.
	LeadOffsetHours int `envconfig:"ALERT_LEAD_OFFSET_HOURS" default:"2" validate:"min=0,max=24"`

	// How often the background evaluator re-runs the pipeline.
	EvalInterval time.Duration `envconfig:"ALERT_EVAL_INTERVAL" default:"6h"`

	// Suppress repeat notifications for the same (event time, title) pair
	// across overlapping forecast windows.
	Dedup bool `envconfig:"ALERT_DEDUP" default:"true"`
}

// ArchiveConfig tunes notification history retention.
type ArchiveConfig struct {
	// Directory for compressed history archives.
	Dir string `envconfig:"ARCHIVE_DIR" default:"/var/lib/tanaw/archive"`

	// History rows older than this are archived and deleted.
	Retention time.Duration `envconfig:"ARCHIVE_RETENTION" default:"720h"`

	// How often the archiver runs.
	Interval time.Duration `envconfig:"ARCHIVE_INTERVAL" default:"24h"`
}

// SecurityConfig holds API access configuration.
type SecurityConfig struct {
	APIKey SecretString `envconfig:"API_KEY" validate:"required"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
