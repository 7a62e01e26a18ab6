// Package config defines service configuration structures and loading hooks.
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

	// QueueSize bounds the dirty-set recalculation queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of recomputation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the submission dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// DataDir selects where the durable run store lives. Empty means
	// in-memory only.
	DataDir string `koanf:"data_dir"`

	// MaxPageSize caps GET /leaderboard?per_page.
	MaxPageSize int `koanf:"max_page_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		Addr:        ":8080",
		QueueSize:   100_000,
		WorkerCount: runtime.NumCPU() * 4,
		DedupeSize:  500_000,
		DataDir:     "",
		MaxPageSize: 100,
	}
}
