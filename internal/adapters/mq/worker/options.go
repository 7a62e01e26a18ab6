// Package worker runs the recomputation passes behind the dirty-set queue.
package worker

import (
	"github.com/paceboard/paceboard/pkg/logger"
)

// Option applies a configuration option to the Recomputer.
type Option func(*Recomputer)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *Recomputer) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *Recomputer) {
		if logger != nil {
			w.logger = logger
		}
	}
}
