package interfaces

import (
	"context"

	"github.com/raysh454/shiro/internal/model"
)

// HistoryStore is the contract for the durable recent-scan snapshot.
// Persistence is best-effort: implementations should prefer returning an error
// over blocking analysis, and callers must treat failures as warnings.
type HistoryStore interface {
	// Save replaces the stored snapshot with the given results, oldest-first.
	// Implementations must round-trip timestamps exactly.
	Save(ctx context.Context, results []*model.AnalysisResult) error

	// Load returns the stored snapshot, oldest-first. A missing or corrupt
	// snapshot yields an empty slice, not an error, unless the store itself
	// is unusable.
	Load(ctx context.Context) ([]*model.AnalysisResult, error)

	// Close releases the underlying storage.
	Close() error
}
