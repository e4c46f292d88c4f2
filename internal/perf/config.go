package perf

import "time"

// Config holds the monitor's bounds and advisory alert thresholds.
// Threshold breaches are logged, never raised.
type Config struct {
	// MaxHistory bounds the global closed-measurement history (FIFO).
	MaxHistory int

	// MaxPerOpHistory bounds the per-operation duration series.
	MaxPerOpHistory int

	// SlowThreshold flags an operation as slow when its average duration
	// exceeds it.
	SlowThreshold time.Duration

	// HighMemoryBytes triggers an advisory warning when the process heap
	// allocation exceeds it during periodic compaction.
	HighMemoryBytes uint64

	// ErrorRateThreshold flags an operation when its error fraction
	// exceeds it (0..1).
	ErrorRateThreshold float64

	// CleanupInterval is how often trend buckets are compacted and the
	// memory check runs, measured against wall time on End.
	CleanupInterval time.Duration
}

// DefaultConfig returns thresholds suitable for interactive analysis loads.
func DefaultConfig() *Config {
	return &Config{
		MaxHistory:         1000,
		MaxPerOpHistory:    200,
		SlowThreshold:      3 * time.Second,
		HighMemoryBytes:    256 << 20, // 256 MiB
		ErrorRateThreshold: 0.1,
		CleanupInterval:    time.Minute,
	}
}
