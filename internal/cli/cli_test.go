package cli_test

import (
	"testing"

	"github.com/raysh454/shiro/internal/cli"
)

func TestParseArgs_ServeDefaults(t *testing.T) {
	args, err := cli.ParseArgs(nil)
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if args.Mode != "serve" {
		t.Errorf("expected serve mode, got %q", args.Mode)
	}
	if args.ListenAddr != ":8080" {
		t.Errorf("unexpected default addr %q", args.ListenAddr)
	}
}

func TestParseArgs_ScanRequiresFile(t *testing.T) {
	if _, err := cli.ParseArgs([]string{"-mode", "scan"}); err == nil {
		t.Fatal("expected error without -file")
	}

	args, err := cli.ParseArgs([]string{"-mode", "scan", "-file", "main.go", "-language", "go"})
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if args.File != "main.go" || args.Language != "go" {
		t.Errorf("unexpected args: %+v", args)
	}
}

func TestParseArgs_UnknownMode(t *testing.T) {
	if _, err := cli.ParseArgs([]string{"-mode", "bogus"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestLanguageForFile(t *testing.T) {
	cases := map[string]string{
		"main.go":    "go",
		"index.htm":  "html",
		"README.md":  "markdown",
		"config.yml": "yaml",
		"stylesheet": "",
		"trailing.":  "",
		"Widget.vue": "vue",
		"scripts.SH": "sh",
	}
	for name, want := range cases {
		if got := cli.LanguageForFile(name); got != want {
			t.Errorf("LanguageForFile(%q) = %q, want %q", name, got, want)
		}
	}
}
