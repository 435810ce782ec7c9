package config

import (
	"time"
)

// Config is the root configuration for inquest.
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine" yaml:"engine" validate:"required"`
	Audit      AuditConfig      `mapstructure:"audit" yaml:"audit"`
	EventStore EventStoreConfig `mapstructure:"event_store" yaml:"event_store"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Tracing    TracingConfig    `mapstructure:"tracing" yaml:"tracing"`
}

// EngineConfig bounds plan execution.
type EngineConfig struct {
	// Concurrency is the maximum number of steps running at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency" validate:"min=1,max=64"`

	// StepTimeout is the per-step invocation deadline.
	StepTimeout time.Duration `mapstructure:"step_timeout" yaml:"step_timeout" validate:"min=1s"`

	Retry RetryConfig `mapstructure:"retry" yaml:"retry"`
}

// RetryConfig bounds transient-failure retries per step.
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=1,max=10"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval" validate:"min=1ms"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval" validate:"min=1ms"`
	Multiplier      float64       `mapstructure:"multiplier" yaml:"multiplier" validate:"min=1"`
}

// AuditConfig controls the persisted audit trail.
type AuditConfig struct {
	// Path is the SQLite database file receiving audit entries.
	Path string `mapstructure:"path" yaml:"path"`

	// FlushInterval bounds how long an appended entry may sit unflushed.
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval" validate:"min=1ms"`
}

// EventStoreConfig points the built-in search tools at the security event
// store. Password values support ${VAR_NAME} environment interpolation so
// credentials stay out of config files.
type EventStoreConfig struct {
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	Username string        `mapstructure:"username" yaml:"username"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	Insecure bool          `mapstructure:"insecure" yaml:"insecure"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}
