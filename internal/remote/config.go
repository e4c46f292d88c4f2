package remote

import "time"

// Config holds settings for the remote detection service tier.
type Config struct {
	// BaseURL is the root of the remote detection service
	// (e.g., "https://detect.example.com").
	BaseURL string

	// ProbeTimeout bounds the liveness probe. Expiry counts as unreachable.
	ProbeTimeout time.Duration

	// RetryInterval is how long an open circuit waits before allowing a
	// half-open probe.
	RetryInterval time.Duration

	// FailureThreshold is how many consecutive failures open the circuit.
	FailureThreshold int
}

// DefaultConfig returns the shipped remote-tier settings. BaseURL must still
// be provided by the caller.
func DefaultConfig() *Config {
	return &Config{
		ProbeTimeout:     2 * time.Second,
		RetryInterval:    5 * time.Minute,
		FailureThreshold: 3,
	}
}
