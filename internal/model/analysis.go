package model

import "time"

// RiskLevel buckets the overall disclosure risk of a snippet.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Provenance records which tier of the fallback chain produced a result.
type Provenance string

const (
	// ProvenanceModular means the primary in-process detector answered.
	ProvenanceModular Provenance = "modular"

	// ProvenanceRemote means the remote detection service answered.
	ProvenanceRemote Provenance = "remote"

	// ProvenanceLocalFallback means the built-in heuristic fallback answered.
	ProvenanceLocalFallback Provenance = "local-fallback"

	// ProvenanceCache means the result was served from the cache without
	// running any detector.
	ProvenanceCache Provenance = "cache"
)

// Severity buckets an individual match.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Options are the mode options influencing an analysis. They participate in
// the cache fingerprint, so two requests differing only in options are cached
// independently.
type Options struct {
	// IncludeMarkup enables the markup-aware pass for HTML-family languages.
	IncludeMarkup bool `json:"include_markup,omitempty"`

	// Extra carries free-form option flags. Keys are sorted when the request
	// is fingerprinted so map order never affects cache identity.
	Extra map[string]string `json:"extra,omitempty"`
}

// AnalysisRequest is the input to one analysis. It is constructed per call
// and never persisted.
type AnalysisRequest struct {
	// Content is the raw snippet under analysis.
	Content string `json:"content"`

	// Language is a lowercase language tag (e.g., "javascript", "go").
	Language string `json:"language"`

	// Name optionally identifies the source of the snippet (file name,
	// buffer title). Used for history and logging only.
	Name string `json:"name,omitempty"`

	// Options are the mode options for this request.
	Options Options `json:"options,omitempty"`
}

// Match is one concrete finding inside the analyzed content.
type Match struct {
	// Pattern is the identifier of the rule that matched (e.g., "secret.password").
	Pattern string `json:"pattern"`

	// Line and Column locate the match (1-based).
	Line   int `json:"line"`
	Column int `json:"column"`

	// Excerpt is a short, redacted fragment around the match. Secret values
	// are masked before they reach the excerpt.
	Excerpt string `json:"excerpt"`

	// Severity is the rule's severity bucket.
	Severity Severity `json:"severity"`
}

// AnalysisResult is the canonical outcome of one analysis. It is immutable
// once produced; the caller owns it after return.
type AnalysisResult struct {
	// RiskLevel is the overall roll-up across all matches.
	RiskLevel RiskLevel `json:"risk_level"`

	// DetectedPatterns is the set of rule tags that matched, deduplicated.
	DetectedPatterns []string `json:"detected_patterns"`

	// Suggestions are ordered, human-readable remediation hints.
	Suggestions []string `json:"suggestions,omitempty"`

	// Matches are the individual findings in document order.
	Matches []Match `json:"matches,omitempty"`

	// Timestamp is when the result was produced (UTC).
	Timestamp time.Time `json:"timestamp"`

	// SourceName echoes AnalysisRequest.Name when present.
	SourceName string `json:"source_name,omitempty"`

	// Provenance records which tier produced this result.
	Provenance Provenance `json:"provenance"`

	// Latency is the wall-clock time the analysis took.
	Latency time.Duration `json:"latency_ns"`
}

// Empty reports whether the result carries no findings at all: no matches
// and no detected patterns. An empty answer from an upstream tier is
// treated as a decline, not as a clean bill of health.
func (r *AnalysisResult) Empty() bool {
	return len(r.Matches) == 0 && len(r.DetectedPatterns) == 0
}

// HasPattern reports whether the result contains the given pattern tag.
func (r *AnalysisResult) HasPattern(tag string) bool {
	for _, p := range r.DetectedPatterns {
		if p == tag {
			return true
		}
	}
	return false
}

// RollUpRisk derives the overall risk level from a set of matches:
// any high-severity match wins, then medium, then low.
func RollUpRisk(matches []Match) RiskLevel {
	level := RiskLow
	for _, m := range matches {
		switch m.Severity {
		case SeverityHigh:
			return RiskHigh
		case SeverityMedium:
			level = RiskMedium
		}
	}
	return level
}
