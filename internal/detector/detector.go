package detector

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
)

// Modular is the primary in-process detector: an ordered regex ruleset over
// the snippet text, plus a markup-aware pass for HTML-family languages.
// It implements interfaces.Detector.
type Modular struct {
	cfg    *Config
	rules  []Rule
	logger logging.Logger
}

// NewModular constructs the primary detector with the shipped ruleset.
func NewModular(cfg *Config, logger logging.Logger) (*Modular, error) {
	if logger == nil {
		return nil, errors.New("detector: nil logger provided")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	l := logger.With(logging.Field{Key: "component", Value: "modular-detector"})
	l.Info("modular detector constructed",
		logging.Field{Key: "rules_version", Value: cfg.RulesVersion},
		logging.Field{Key: "rule_count", Value: len(defaultRules)})

	return &Modular{
		cfg:    cfg,
		rules:  defaultRules,
		logger: l,
	}, nil
}

// Name returns the provenance tag for this tier.
func (d *Modular) Name() string { return string(model.ProvenanceModular) }

// Detect runs the ruleset over the request content. A result with zero
// matches is a valid answer; the engine decides whether to fall through.
func (d *Modular) Detect(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	if req == nil {
		return nil, errors.New("detector: nil request")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content := req.Content
	if d.cfg.ScanLimitBytes > 0 && len(content) > d.cfg.ScanLimitBytes {
		d.logger.Warn("content exceeds scan limit, truncating",
			logging.Field{Key: "size", Value: len(content)},
			logging.Field{Key: "limit", Value: d.cfg.ScanLimitBytes})
		content = content[:d.cfg.ScanLimitBytes]
	}

	matches, err := d.scanLines(ctx, content)
	if err != nil {
		return nil, err
	}

	if req.Options.IncludeMarkup && d.isMarkupLanguage(req.Language) {
		matches = append(matches, d.markupFindings(content)...)
	}

	matches = dedupeAndOrder(matches)

	return d.assemble(matches), nil
}

// scanLines applies every rule to every line. Cancellation is checked
// periodically so very large inputs do not run past a dead context.
func (d *Modular) scanLines(ctx context.Context, content string) ([]model.Match, error) {
	var matches []model.Match
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if i%256 == 255 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for _, rule := range d.rules {
			for _, loc := range rule.Pattern.FindAllStringIndex(line, -1) {
				matched := line[loc[0]:loc[1]]
				matches = append(matches, model.Match{
					Pattern:  rule.ID,
					Line:     i + 1,
					Column:   loc[0] + 1,
					Excerpt:  buildExcerpt(line, matched, rule.Redact),
					Severity: rule.Severity,
				})
			}
		}
	}
	return matches, nil
}

func (d *Modular) isMarkupLanguage(language string) bool {
	language = strings.ToLower(language)
	for _, l := range d.cfg.MarkupLanguages {
		if l == language {
			return true
		}
	}
	return false
}

// assemble rolls matches up into the canonical result. Provenance, latency
// and source name are stamped by the engine, not here.
func (d *Modular) assemble(matches []model.Match) *model.AnalysisResult {
	patterns := make([]string, 0, len(matches))
	seenPattern := make(map[string]bool)
	suggestions := make([]string, 0)
	seenSuggestion := make(map[string]bool)

	for _, m := range matches {
		if !seenPattern[m.Pattern] {
			seenPattern[m.Pattern] = true
			patterns = append(patterns, m.Pattern)
		}
		if s := suggestionFor(d.rules, m.Pattern); s != "" && !seenSuggestion[s] {
			seenSuggestion[s] = true
			suggestions = append(suggestions, s)
		}
	}

	return &model.AnalysisResult{
		RiskLevel:        model.RollUpRisk(matches),
		DetectedPatterns: patterns,
		Suggestions:      suggestions,
		Matches:          matches,
		Timestamp:        time.Now().UTC(),
	}
}

func suggestionFor(rules []Rule, id string) string {
	for _, r := range rules {
		if r.ID == id {
			return r.Suggestion
		}
	}
	return ""
}

// dedupeAndOrder drops duplicate (pattern, line, column) findings — the
// markup pass overlaps the line scan for unencoded content — and sorts the
// remainder into document order.
func dedupeAndOrder(matches []model.Match) []model.Match {
	type key struct {
		pattern string
		line    int
		column  int
	}
	seen := make(map[key]bool, len(matches))
	out := matches[:0]
	for _, m := range matches {
		k := key{m.Pattern, m.Line, m.Column}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}
