package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := getDefaultHomeDir()

	return &Config{
		Engine: EngineConfig{
			Concurrency: 4,
			StepTimeout: 60 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:     3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     10 * time.Second,
				Multiplier:      2.0,
			},
		},
		Audit: AuditConfig{
			Path:          filepath.Join(homeDir, "audit.db"),
			FlushInterval: time.Second,
		},
		EventStore: EventStoreConfig{
			Endpoint: "https://localhost:9200",
			Username: "admin",
			Timeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "",
		},
	}
}

// getDefaultHomeDir returns the default inquest home directory, ~/.inquest,
// falling back to a temporary directory if user home cannot be determined.
func getDefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".inquest")
	}
	return filepath.Join(userHome, ".inquest")
}
