package history

import (
	"sync"
	"time"

	"github.com/raysh454/shiro/internal/model"
)

// Log is the in-memory recent-scan log: ordered oldest-first, capped at
// MaxEntries with FIFO eviction. Safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []*model.AnalysisResult
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Seed replaces the log contents with previously persisted results,
// oldest-first. Extra entries beyond the cap are dropped from the front.
func (l *Log) Seed(results []*model.AnalysisResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(results) > MaxEntries {
		results = results[len(results)-MaxEntries:]
	}
	l.entries = append([]*model.AnalysisResult(nil), results...)
}

// Append adds a result, evicting the oldest entry once the cap is reached.
func (l *Log) Append(res *model.AnalysisResult) {
	if res == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, res)
	if len(l.entries) > MaxEntries {
		l.entries = l.entries[len(l.entries)-MaxEntries:]
	}
}

// Snapshot returns a copy of the log, oldest-first.
func (l *Log) Snapshot() []*model.AnalysisResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*model.AnalysisResult(nil), l.entries...)
}

// SnapshotPruned returns a copy of the log with entries older than maxAge
// removed. Used on the persistence path, where the age ceiling applies.
func (l *Log) SnapshotPruned(maxAge time.Duration) []*model.AnalysisResult {
	cutoff := time.Now().Add(-maxAge)
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*model.AnalysisResult, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the current entry count.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// LatestPair returns the two most recent results for sourceName
// (older, newer). ok is false when fewer than two scans exist for it.
func (l *Log) LatestPair(sourceName string) (older, newer *model.AnalysisResult, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].SourceName != sourceName {
			continue
		}
		if newer == nil {
			newer = l.entries[i]
			continue
		}
		return l.entries[i], newer, true
	}
	return nil, nil, false
}
