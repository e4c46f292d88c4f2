package history

import (
	"context"
	"sync"
	"time"

	"github.com/raysh454/shiro/internal/interfaces"
	"github.com/raysh454/shiro/internal/logging"
)

// Persister serializes snapshot writes to the backing store. Each Submit
// chains a write behind the previous one, so writes never interleave and
// the store always holds a consistent window. Flush waits for every write
// submitted so far, which makes shutdown ordering explicit.
type Persister struct {
	store  interfaces.HistoryStore
	logger logging.Logger
	maxAge time.Duration

	mu   sync.Mutex
	last chan struct{} // closed when the most recently submitted write finishes
}

// NewPersister wraps store with a chained writer. maxAge bounds how old a
// snapshot entry may be before it is dropped from the persisted window.
func NewPersister(store interfaces.HistoryStore, logger logging.Logger, maxAge time.Duration) *Persister {
	done := make(chan struct{})
	close(done)
	return &Persister{
		store:  store,
		logger: logger,
		maxAge: maxAge,
		last:   done,
	}
}

// Submit schedules an asynchronous write of the log snapshot, pruned to
// the age ceiling. Write failures are logged, not returned: persistence is
// best-effort and must not fail the analysis that triggered it.
func (p *Persister) Submit(log *Log) {
	p.mu.Lock()
	prev := p.last
	done := make(chan struct{})
	p.last = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		<-prev

		snapshot := log.SnapshotPruned(p.maxAge)
		if err := p.store.Save(context.Background(), snapshot); err != nil {
			p.logger.Warn("history save failed",
				logging.Field{Key: "error", Value: err.Error()},
				logging.Field{Key: "entries", Value: len(snapshot)})
		}
	}()
}

// Flush blocks until every write submitted before the call has completed,
// or ctx is done.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()

	select {
	case <-last:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
