package detector

// Config controls the modular detector.
type Config struct {
	// RulesVersion identifies the shipped ruleset (for auditability of
	// results across upgrades).
	RulesVersion string

	// ScanLimitBytes caps how much content the rule pass reads. Content
	// beyond the limit is ignored rather than failing the analysis.
	ScanLimitBytes int

	// MarkupLanguages lists the language tags that get the markup-aware
	// pass when the request enables it.
	MarkupLanguages []string
}

// DefaultConfig returns the shipped ruleset configuration.
func DefaultConfig() *Config {
	return &Config{
		RulesVersion:   "v0.3.0",
		ScanLimitBytes: 1 << 20,
		MarkupLanguages: []string{
			"html", "xml", "vue", "svelte", "markdown",
		},
	}
}
