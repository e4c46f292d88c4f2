package interfaces

import "fmt"

// TestLogger satisfies Logger for tests that only need somewhere for log
// lines to go. Debug and Info are swallowed unless verbose is set; Warn and
// Error always print, since a quiet test failing on a warning path is the
// one time the output matters.
type TestLogger struct {
	verbose bool
}

// NewTestLogger returns a TestLogger. Pass verbose=true to see Debug and
// Info lines while iterating on a test.
func NewTestLogger(verbose bool) *TestLogger {
	return &TestLogger{verbose: verbose}
}

func (tl *TestLogger) Debug(msg string, fields ...Field) {
	if tl.verbose {
		fmt.Printf("[DEBUG] %s %v\n", msg, fields)
	}
}

func (tl *TestLogger) Info(msg string, fields ...Field) {
	if tl.verbose {
		fmt.Printf("[INFO] %s %v\n", msg, fields)
	}
}

func (tl *TestLogger) Warn(msg string, fields ...Field) {
	fmt.Printf("[WARN] %s %v\n", msg, fields)
}

func (tl *TestLogger) Error(msg string, fields ...Field) {
	fmt.Printf("[ERROR] %s %v\n", msg, fields)
}

func (tl *TestLogger) With(fields ...Field) Logger {
	return tl
}
