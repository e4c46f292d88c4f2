package detector

import (
	"regexp"
	"strings"

	"github.com/raysh454/shiro/internal/model"
)

// Rule is one detection pattern. Rules are evaluated per line; every
// occurrence yields a Match.
type Rule struct {
	// ID tags matches from this rule (e.g., "secret.password").
	ID string

	// Pattern is the compiled expression. Group 0 is the matched region.
	Pattern *regexp.Regexp

	// Severity assigned to matches from this rule.
	Severity model.Severity

	// Suggestion is the remediation hint surfaced when this rule matches.
	Suggestion string

	// Redact masks the matched region in excerpts, keeping only a short
	// prefix. Set for rules that match live secret material.
	Redact bool
}

// defaultRules is the shipped ruleset: secrets first (highest signal), then
// business-logic markers, then infrastructure identifiers.
var defaultRules = []Rule{
	{
		ID:         "secret.password",
		Pattern:    regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"][^'"]{3,}['"]`),
		Severity:   model.SeverityHigh,
		Suggestion: "Remove hardcoded passwords; load them from environment or a secret manager.",
		Redact:     true,
	},
	{
		ID:         "secret.api_key",
		Pattern:    regexp.MustCompile(`(?i)(api[_-]?key|access[_-]?key|client[_-]?secret)\s*[:=]\s*['"]?[A-Za-z0-9_\-]{8,}['"]?`),
		Severity:   model.SeverityHigh,
		Suggestion: "Rotate the exposed API key and reference it indirectly.",
		Redact:     true,
	},
	{
		ID:         "secret.token",
		Pattern:    regexp.MustCompile(`(?i)((auth|secret|session|refresh)[_-]?token\s*[:=]\s*\S{8,}|bearer\s+[A-Za-z0-9_\-.]{16,})`),
		Severity:   model.SeverityHigh,
		Suggestion: "Strip authentication tokens before sharing the snippet.",
		Redact:     true,
	},
	{
		ID:         "secret.private_key",
		Pattern:    regexp.MustCompile(`-----BEGIN (RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY( BLOCK)?-----`),
		Severity:   model.SeverityHigh,
		Suggestion: "Never share private key material; revoke the key if it already left the machine.",
	},
	{
		ID:         "secret.connection_string",
		Pattern:    regexp.MustCompile(`(?i)\b(mongodb(\+srv)?|postgres(ql)?|mysql|redis|amqps?)://[^\s'"]+:[^\s'"]+@[^\s'"]+`),
		Severity:   model.SeverityHigh,
		Suggestion: "Replace connection strings containing credentials with placeholders.",
		Redact:     true,
	},
	{
		ID:         "secret.aws_access_key",
		Pattern:    regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		Severity:   model.SeverityHigh,
		Suggestion: "Rotate the AWS access key immediately.",
		Redact:     true,
	},
	{
		ID:         "business.proprietary_marker",
		Pattern:    regexp.MustCompile(`(?i)\b(proprietary|confidential|internal use only|do not distribute|trade secret)\b`),
		Severity:   model.SeverityMedium,
		Suggestion: "Content is marked as restricted; confirm it may be disclosed before sharing.",
	},
	{
		ID:         "business.internal_endpoint",
		Pattern:    regexp.MustCompile(`(?i)https?://[a-z0-9.-]+\.(internal|corp|intranet|lan)\b[^\s'"]*`),
		Severity:   model.SeverityMedium,
		Suggestion: "Redact internal service endpoints before sharing.",
	},
	{
		ID:         "infra.private_ip",
		Pattern:    regexp.MustCompile(`\b(10\.\d{1,3}\.\d{1,3}\.\d{1,3}|192\.168\.\d{1,3}\.\d{1,3}|172\.(1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3})\b`),
		Severity:   model.SeverityMedium,
		Suggestion: "Replace private network addresses with placeholders.",
	},
	{
		ID:         "infra.env_assignment",
		Pattern:    regexp.MustCompile(`\b[A-Z][A-Z0-9_]*_(SECRET|TOKEN|PASSWORD|KEY)\s*=\s*\S+`),
		Severity:   model.SeverityMedium,
		Suggestion: "Environment assignments with credential-like names should be stripped.",
		Redact:     true,
	},
}

// maskExcerptLimit caps excerpt length so findings stay readable.
const maskExcerptLimit = 80

// redactMatch masks the value portion of a matched region, keeping the
// identifier part so the finding remains recognizable.
func redactMatch(matched string) string {
	for _, sep := range []string{"=", ":", " "} {
		if i := strings.Index(matched, sep); i >= 0 && i < len(matched)-1 {
			return matched[:i+1] + "****"
		}
	}
	if len(matched) > 8 {
		return matched[:4] + "****"
	}
	return "****"
}

// buildExcerpt returns the line with the matched region (rule-dependent)
// redacted, truncated to maskExcerptLimit runes.
func buildExcerpt(line, matched string, redact bool) string {
	excerpt := line
	if redact {
		excerpt = strings.Replace(line, matched, redactMatch(matched), 1)
	}
	excerpt = strings.TrimSpace(excerpt)
	runes := []rune(excerpt)
	if len(runes) > maskExcerptLimit {
		excerpt = string(runes[:maskExcerptLimit-1]) + "…"
	}
	return excerpt
}
