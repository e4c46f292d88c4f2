package webclient

import "time"

// Config holds transport settings for the net/http backend.
type Config struct {
	// Timeout bounds every request end to end. Zero means the default.
	Timeout time.Duration
}

// DefaultConfig returns transport settings for interactive use.
func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}
