package history

import "time"

// Snapshot bounds. The in-memory log is capped at MaxEntries (FIFO); entries
// older than MaxAge are dropped on each save.
const (
	MaxEntries = 50
	MaxAge     = 7 * 24 * time.Hour
)

// Config holds settings for the history subsystem.
type Config struct {
	// DBPath is where the SQLite snapshot lives. Empty means in-memory.
	DBPath string

	// SaveTimeout bounds a single background persistence write.
	SaveTimeout time.Duration
}

// DefaultConfig returns settings for interactive use.
func DefaultConfig() *Config {
	return &Config{
		SaveTimeout: 5 * time.Second,
	}
}
