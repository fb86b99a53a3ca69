// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// QueueSize bounds the in-memory candidate queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of validation workers.
	WorkerCount int `koanf:"worker_count"`

	// TrackerSize caps the ingest idempotency tracker.
	TrackerSize int `koanf:"tracker_size"`

	// BatchSize bounds how many rows a maintenance job page touches.
	BatchSize int `koanf:"batch_size"`

	// CrossSourceThreshold is the name similarity above which two sessions
	// from different sources are flagged as possible duplicates.
	CrossSourceThreshold float64 `koanf:"cross_source_threshold"`

	// LowQualityThreshold is the source score below which the monitor
	// raises a low_quality alert.
	LowQualityThreshold int `koanf:"low_quality_threshold"`

	// StaleAfterDays is how long a source may go without a successful
	// scrape before a stale_scrape alert.
	StaleAfterDays int `koanf:"stale_after_days"`

	// JobIntervalHours controls how often the scheduler runs the
	// maintenance jobs.
	JobIntervalHours int `koanf:"job_interval_hours"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8080",
		DBPath:               "campsift.db",
		QueueSize:            100_000,
		WorkerCount:          runtime.NumCPU() * 2,
		TrackerSize:          50_000,
		BatchSize:            100,
		CrossSourceThreshold: 0.85,
		LowQualityThreshold:  50,
		StaleAfterDays:       7,
		JobIntervalHours:     24,
	}
}
