package history

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raysh454/shiro/internal/model"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// ScanDiff describes how a source's disclosure posture changed between
// two scans.
type ScanDiff struct {
	SourceName      string          `json:"sourceName"`
	BaseScannedAt   time.Time       `json:"baseScannedAt"`
	HeadScannedAt   time.Time       `json:"headScannedAt"`
	BaseRiskLevel   model.RiskLevel `json:"baseRiskLevel"`
	HeadRiskLevel   model.RiskLevel `json:"headRiskLevel"`
	RiskChanged     bool            `json:"riskChanged"`
	AddedPatterns   []string        `json:"addedPatterns"`
	RemovedPatterns []string        `json:"removedPatterns"`
	Chunks          []Chunk         `json:"chunks"`
}

// Chunk represents a single change in a textual diff of the findings.
type Chunk struct {
	Type    string `json:"type"`              // "added" or "removed"
	Content string `json:"content,omitempty"` // content for the chunk
}

// DiffResults compares two scans of the same source, base older than head.
func DiffResults(base, head *model.AnalysisResult) (*ScanDiff, error) {
	if base == nil || head == nil {
		return nil, fmt.Errorf("history: cannot diff nil results")
	}
	if base.SourceName != head.SourceName {
		return nil, fmt.Errorf("history: source mismatch: %q vs %q", base.SourceName, head.SourceName)
	}

	d := &ScanDiff{
		SourceName:      head.SourceName,
		BaseScannedAt:   base.Timestamp,
		HeadScannedAt:   head.Timestamp,
		BaseRiskLevel:   base.RiskLevel,
		HeadRiskLevel:   head.RiskLevel,
		RiskChanged:     base.RiskLevel != head.RiskLevel,
		AddedPatterns:   diffPatterns(head.DetectedPatterns, base.DetectedPatterns),
		RemovedPatterns: diffPatterns(base.DetectedPatterns, head.DetectedPatterns),
		Chunks:          diffFindings(base, head),
	}
	return d, nil
}

// diffPatterns returns the patterns present in a but not in b, sorted.
func diffPatterns(a, b []string) []string {
	seen := make(map[string]struct{}, len(b))
	for _, p := range b {
		seen[p] = struct{}{}
	}
	out := make([]string, 0)
	for _, p := range a {
		if _, ok := seen[p]; !ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// diffFindings computes a semantic text diff over a rendered summary of
// each scan's matches, one finding per line.
func diffFindings(base, head *model.AnalysisResult) []Chunk {
	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(renderFindings(base), renderFindings(head), true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	chunks := make([]Chunk, 0)
	for _, d := range diffs {
		var chunkType string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			chunkType = "added"
		case diffmatchpatch.DiffDelete:
			chunkType = "removed"
		case diffmatchpatch.DiffEqual:
			continue
		}
		if strings.TrimSpace(d.Text) != "" {
			chunks = append(chunks, Chunk{Type: chunkType, Content: d.Text})
		}
	}
	return chunks
}

// renderFindings renders a scan's matches into a stable line-oriented form
// suitable for diffing. Excerpts are already redacted upstream.
func renderFindings(res *model.AnalysisResult) string {
	lines := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		lines = append(lines, fmt.Sprintf("%s:%d:%d %s %s", m.Pattern, m.Line, m.Column, m.Severity, m.Excerpt))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}
