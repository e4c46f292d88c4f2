package interfaces

// Logger is the minimal structured-logging contract shared by every
// component. Implementations live outside this package (internal/logging,
// internal/testutil) so the analysis core never picks the backend.
type Logger interface {
	// Debug logs detail useful only when tracing a run.
	Debug(msg string, fields ...Field)

	// Info logs normal operational events.
	Info(msg string, fields ...Field)

	// Warn logs recoverable trouble, e.g. a skipped tier or a rejected
	// cache write.
	Warn(msg string, fields ...Field)

	// Error logs failures that surfaced to a caller.
	Error(msg string, fields ...Field)

	// With returns a child logger carrying the given fields on every line.
	With(fields ...Field) Logger
}

// Field is one key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}
