package detector

import (
	"context"
	"strings"
	"time"

	"github.com/raysh454/shiro/internal/model"
)

// keywordHint is one conservative substring heuristic used by the fallback
// tier. Deliberately cruder than the modular ruleset: the fallback must be a
// pure function over text that cannot fail.
type keywordHint struct {
	keyword    string
	pattern    string
	severity   model.Severity
	suggestion string
}

var fallbackHints = []keywordHint{
	{"private key", "fallback.private_key", model.SeverityHigh, "Possible key material detected; do not share."},
	{"password", "fallback.password", model.SeverityHigh, "Possible password detected; remove it before sharing."},
	{"passwd", "fallback.password", model.SeverityHigh, "Possible password detected; remove it before sharing."},
	{"secret", "fallback.secret", model.SeverityMedium, "Content mentions secrets; review before sharing."},
	{"api_key", "fallback.api_key", model.SeverityMedium, "Possible API key reference; review before sharing."},
	{"apikey", "fallback.api_key", model.SeverityMedium, "Possible API key reference; review before sharing."},
	{"token", "fallback.token", model.SeverityMedium, "Possible token reference; review before sharing."},
}

// Fallback is the tertiary detector: substring heuristics only, no regex, no
// I/O, no failure modes. It always answers.
type Fallback struct{}

// NewFallback constructs the tertiary detector.
func NewFallback() *Fallback { return &Fallback{} }

// Name returns the provenance tag for this tier.
func (f *Fallback) Name() string { return string(model.ProvenanceLocalFallback) }

// Detect scans lowercased content for credential-like keywords. It never
// returns an error.
func (f *Fallback) Detect(_ context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	result := &model.AnalysisResult{
		RiskLevel: model.RiskLow,
		Timestamp: time.Now().UTC(),
	}
	if req == nil || req.Content == "" {
		return result, nil
	}

	lines := strings.Split(strings.ToLower(req.Content), "\n")
	seenPattern := make(map[string]bool)
	seenSuggestion := make(map[string]bool)

	for i, line := range lines {
		for _, hint := range fallbackHints {
			col := strings.Index(line, hint.keyword)
			if col < 0 {
				continue
			}
			result.Matches = append(result.Matches, model.Match{
				Pattern:  hint.pattern,
				Line:     i + 1,
				Column:   col + 1,
				Excerpt:  buildExcerpt(line, line[col:col+len(hint.keyword)], true),
				Severity: hint.severity,
			})
			if !seenPattern[hint.pattern] {
				seenPattern[hint.pattern] = true
				result.DetectedPatterns = append(result.DetectedPatterns, hint.pattern)
			}
			if !seenSuggestion[hint.suggestion] {
				seenSuggestion[hint.suggestion] = true
				result.Suggestions = append(result.Suggestions, hint.suggestion)
			}
		}
	}

	result.RiskLevel = model.RollUpRisk(result.Matches)
	return result, nil
}
