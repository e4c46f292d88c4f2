package cli

import (
	"flag"
	"fmt"
	"strings"
)

// CLIArgs are the command-line arguments that control a single scan or the
// API server. Keep this small for now — add fields as modules need them.
type CLIArgs struct {
	// Mode selects what to run: "serve" starts the API, "scan" analyzes
	// one file and prints the result.
	Mode string

	// ListenAddr is the API listen address in serve mode.
	ListenAddr string

	// DBPath overrides where scan history is stored; empty keeps the default.
	DBPath string

	// RemoteURL enables the remote analysis tier when non-empty.
	RemoteURL string

	// File is the path to analyze in scan mode.
	File string

	// Language is the source language hint for scan mode; empty means
	// "derive from the file extension".
	Language string

	// IncludeMarkup enables the markup-aware pass in scan mode.
	IncludeMarkup bool

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("shiro-cli", flag.ContinueOnError)
	var (
		mode     = fs.String("mode", "serve", "Run mode: serve|scan")
		addr     = fs.String("addr", ":8080", "API listen address (serve mode)")
		dbPath   = fs.String("db", "", "Scan history database path (empty=default)")
		remote   = fs.String("remote", "", "Remote analysis service base URL (empty=local only)")
		file     = fs.String("file", "", "File to analyze (scan mode)")
		language = fs.String("language", "", "Language hint for the file (empty=derive from extension)")
		markup   = fs.Bool("markup", false, "Enable the markup-aware detection pass")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(nil)

	if err := fs.Parse(args); err != nil {
		// Flag parsing errors are useful to return to caller
		return nil, err
	}

	switch *mode {
	case "serve":
	case "scan":
		if strings.TrimSpace(*file) == "" {
			return nil, fmt.Errorf("scan mode requires -file")
		}
	default:
		return nil, fmt.Errorf("unknown mode %q (want serve or scan)", *mode)
	}

	return &CLIArgs{
		Mode:          *mode,
		ListenAddr:    *addr,
		DBPath:        *dbPath,
		RemoteURL:     *remote,
		File:          *file,
		Language:      *language,
		IncludeMarkup: *markup,
		RawArgs:       args,
	}, nil
}

// LanguageForFile derives a language hint from a file name extension.
// Unknown extensions return the extension itself without the dot.
func LanguageForFile(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	ext := strings.ToLower(name[idx+1:])
	switch ext {
	case "htm":
		return "html"
	case "md":
		return "markdown"
	case "yml":
		return "yaml"
	}
	return ext
}
