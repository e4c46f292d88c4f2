package cache

import "time"

// Config bounds the store. All limits are hard: the store never exceeds them
// after any mutation.
type Config struct {
	// MaxEntries is the maximum number of live entries.
	MaxEntries int

	// MaxBytes is the maximum total estimated payload size.
	MaxBytes int64

	// MaxEntryBytes is the largest single payload the store will accept.
	// Oversized payloads are rejected with a warning, not an error.
	MaxEntryBytes int64

	// DefaultTTL applies when Set is called with a non-positive ttl.
	DefaultTTL time.Duration
}

// DefaultConfig returns bounds suitable for interactive use.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:    500,
		MaxBytes:      10 << 20, // 10 MiB
		MaxEntryBytes: 1 << 20,  // 1 MiB
		DefaultTTL:    5 * time.Minute,
	}
}
