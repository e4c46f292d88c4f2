package interfaces

import (
	"context"

	"github.com/raysh454/shiro/internal/model"
)

// Detector is the minimal cross-package contract for one tier of the analysis
// fallback chain. Implementations receive the raw request content and return a
// canonical AnalysisResult; they must not cache, coalesce or persist — that is
// the engine's job.
//
// A Detector may fail (return an error) or come back empty-handed (a nil
// result, or one with no findings). The engine advances past the primary
// tier on either; a healthy remote tier's answer is authoritative even when
// empty, and the terminal fallback's answer is always taken as-is.
type Detector interface {
	// Name returns the detector's stable identifier used in logs and
	// provenance tagging (e.g., "modular", "remote", "local-fallback").
	Name() string

	// Detect analyzes the request content. Implementations should respect
	// ctx cancellation on any blocking work.
	Detect(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error)
}

// HealthChecker is implemented by detectors backed by an external service.
// The engine uses it to decide whether the tier is worth attempting at all.
type HealthChecker interface {
	// Health probes the backing service. A non-nil error means unreachable.
	Health(ctx context.Context) error
}
