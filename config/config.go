// Package config defines the engine's top-level configuration: worker pool
// sizing, per-worker timeouts, retry policy, and the vendored-binary search
// path, following the teacher's flat-struct-with-Default/Validate pattern.
package config

import (
	"errors"
	"time"
)

// Config is the top-level engine configuration. Callers start from
// Default(), override only what they need, then call Validate before use.
// The zero Config does not validate: QueueSize and JobTimeout must be
// positive.
type Config struct {
	// Worker pool controls (the image-parallel, worker-sequential driver).
	WorkerCount int           // concurrent images in flight; default: runtime.NumCPU()
	QueueSize   int           // max queued async jobs before backpressure; default: 256
	JobTimeout  time.Duration // per-worker exec.CommandContext deadline; default: 30s

	// Retry.
	MaxRetries int // per-worker retry attempts on transient failure; default: 0 (no retry)
	RetryDelay time.Duration

	// VendoredBinDir, if set, is searched for optimizer binaries before the
	// OS's PATH list, letting a deployment ship pinned binaries alongside
	// the process rather than relying on whatever's installed system-wide.
	VendoredBinDir string

	// LogLevel selects the default SlogLogger level: "debug", "info",
	// "warn", or "error".
	LogLevel string
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		WorkerCount: 0, // resolved at runtime to runtime.NumCPU()
		QueueSize:   256,
		JobTimeout:  30 * time.Second,
		MaxRetries:  0,
		RetryDelay:  200 * time.Millisecond,
		LogLevel:    "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.WorkerCount < 0 {
		return errors.New("config: WorkerCount must not be negative")
	}
	if c.QueueSize <= 0 {
		return errors.New("config: QueueSize must be positive")
	}
	if c.JobTimeout <= 0 {
		return errors.New("config: JobTimeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("config: MaxRetries must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("config: LogLevel must be one of debug/info/warn/error")
	}
	return nil
}
