package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/inquestai/inquest/internal/types"
)

// Loader handles loading configuration from files.
type Loader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

type viperLoader struct {
	validator Validator
}

// NewLoader creates a Loader backed by viper.
func NewLoader(validator Validator) Loader {
	return &viperLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified file path. Missing keys fall
// back to defaults; an unreadable or unparsable file is an error.
func (l *viperLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to unmarshal config", err)
	}

	interpolateConfig(&cfg)

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path,
// returning default configuration when the file does not exist.
func (l *viperLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return l.Load(path)
}

// setDefaults registers the default value of every key so a partial config
// file only overrides what it names.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("engine.concurrency", d.Engine.Concurrency)
	v.SetDefault("engine.step_timeout", d.Engine.StepTimeout)
	v.SetDefault("engine.retry.max_attempts", d.Engine.Retry.MaxAttempts)
	v.SetDefault("engine.retry.initial_interval", d.Engine.Retry.InitialInterval)
	v.SetDefault("engine.retry.max_interval", d.Engine.Retry.MaxInterval)
	v.SetDefault("engine.retry.multiplier", d.Engine.Retry.Multiplier)
	v.SetDefault("audit.path", d.Audit.Path)
	v.SetDefault("audit.flush_interval", d.Audit.FlushInterval)
	v.SetDefault("event_store.endpoint", d.EventStore.Endpoint)
	v.SetDefault("event_store.username", d.EventStore.Username)
	v.SetDefault("event_store.insecure", d.EventStore.Insecure)
	v.SetDefault("event_store.timeout", d.EventStore.Timeout)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)
}

// interpolateConfig applies ${VAR_NAME} environment interpolation to the
// string fields where secrets or deployment-specific values live.
func interpolateConfig(cfg *Config) {
	cfg.Audit.Path = interpolateString(cfg.Audit.Path)
	cfg.EventStore.Endpoint = interpolateString(cfg.EventStore.Endpoint)
	cfg.EventStore.Username = interpolateString(cfg.EventStore.Username)
	cfg.EventStore.Password = interpolateString(cfg.EventStore.Password)
	cfg.Tracing.Endpoint = interpolateString(cfg.Tracing.Endpoint)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values,
// leaving unresolved references untouched.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}
