package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
)

// Eviction score weights. The recency term is seeded at creation and is not
// refreshed on read, so recency reflects insertion time, not last access.
const (
	hitWeight = 0.3
	ageWeight = 0.7
)

// entry is exclusively owned by the Store and never leaves it by reference.
type entry struct {
	payload   any
	createdAt time.Time
	ttl       time.Duration
	hitCount  int
	size      int64
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Stats is a snapshot of the store's runtime counters, taken under the lock.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
	Bytes     int64  `json:"bytes"`
}

// Store memoizes analysis payloads keyed by a request fingerprint, bounded by
// entry count, total estimated size and per-entry TTL. All methods are safe
// for concurrent use; mutations run under a single mutex so insert/evict pairs
// are atomic.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	bytes   int64
	stats   Stats

	cfg    *Config
	logger logging.Logger
}

// NewStore validates the config and constructs an empty store. Non-positive
// bounds are a fatal configuration error.
func NewStore(cfg *Config, logger logging.Logger) (*Store, error) {
	if logger == nil {
		return nil, errors.New("cache: nil logger provided")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxEntries <= 0 || cfg.MaxBytes <= 0 || cfg.MaxEntryBytes <= 0 {
		return nil, fmt.Errorf("cache: non-positive bound in config (entries=%d bytes=%d entry_bytes=%d)",
			cfg.MaxEntries, cfg.MaxBytes, cfg.MaxEntryBytes)
	}
	if cfg.DefaultTTL <= 0 {
		return nil, fmt.Errorf("cache: non-positive default ttl %s", cfg.DefaultTTL)
	}

	l := logger.With(logging.Field{Key: "component", Value: "cache"})
	l.Info("cache store constructed",
		logging.Field{Key: "max_entries", Value: cfg.MaxEntries},
		logging.Field{Key: "max_bytes", Value: cfg.MaxBytes})

	return &Store{
		entries: make(map[string]*entry),
		cfg:     cfg,
		logger:  l,
	}, nil
}

// Fingerprint derives the deterministic cache key for a request. Option map
// keys are sorted so ordering never changes the key. Collisions are only a
// probabilistic concern, not a security property.
func Fingerprint(content, language string, opts model.Options) string {
	h := sha256.New()
	h.Write([]byte(content))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(language)))
	h.Write([]byte{0})
	if opts.IncludeMarkup {
		h.Write([]byte("markup"))
	}
	h.Write([]byte{0})
	if len(opts.Extra) > 0 {
		keys := make([]string, 0, len(opts.Extra))
		for k := range opts.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte{'='})
			h.Write([]byte(opts.Extra[k]))
			h.Write([]byte{0})
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the payload for key. A logically expired entry is a miss and is
// physically removed as a side effect.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.stats.Misses++
		return nil, false
	}
	if e.expired(time.Now()) {
		s.removeLocked(key)
		s.stats.Misses++
		return nil, false
	}
	e.hitCount++
	s.stats.Hits++
	return e.payload, true
}

// Set inserts payload under key. An oversized payload is rejected as a no-op
// with a warning; otherwise lowest-scored entries are evicted until the new
// entry fits both bounds. Set never fails.
func (s *Store) Set(key string, payload any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}
	size := estimateSize(payload)
	if size > s.cfg.MaxEntryBytes || size > s.cfg.MaxBytes {
		s.logger.Warn("payload exceeds per-entry size bound, skipping cache",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "size", Value: size},
			logging.Field{Key: "max_entry_bytes", Value: s.cfg.MaxEntryBytes})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace any existing entry first so bounds math sees the net change.
	if _, ok := s.entries[key]; ok {
		s.removeLocked(key)
	}

	for len(s.entries) >= s.cfg.MaxEntries || s.bytes+size > s.cfg.MaxBytes {
		if !s.evictLowestLocked() {
			break
		}
	}

	s.entries[key] = &entry{
		payload:   payload,
		createdAt: time.Now(),
		ttl:       ttl,
		size:      size,
	}
	s.bytes += size
}

// Has reports whether key holds a fresh entry without counting a hit.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if e.expired(time.Now()) {
		s.removeLocked(key)
		return false
	}
	return true
}

// Delete removes key if present.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.bytes = 0
}

// Invalidate removes all keys matching pattern. The pattern is tried as a
// regular expression first; if it does not compile it is treated as a literal
// substring. Returns the number of entries removed.
func (s *Store) Invalidate(pattern string) int {
	var match func(string) bool
	if re, err := regexp.Compile(pattern); err == nil {
		match = re.MatchString
	} else {
		match = func(k string) bool { return strings.Contains(k, pattern) }
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k := range s.entries {
		if match(k) {
			s.removeLocked(k)
			removed++
		}
	}
	return removed
}

// Optimize prunes all expired entries, then, if the store is still over
// bounds, evicts entries by ascending blended score until bounds hold.
// Intended to be called periodically.
func (s *Store) Optimize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for k, e := range s.entries {
		if e.expired(now) {
			s.removeLocked(k)
		}
	}
	for len(s.entries) > s.cfg.MaxEntries || s.bytes > s.cfg.MaxBytes {
		if !s.evictLowestLocked() {
			break
		}
	}
}

// Stats returns a consistent snapshot of the runtime counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Entries = len(s.entries)
	st.Bytes = s.bytes
	return st
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// removeLocked deletes key and adjusts the byte total. Caller holds the lock.
func (s *Store) removeLocked(key string) {
	if e, ok := s.entries[key]; ok {
		s.bytes -= e.size
		delete(s.entries, key)
	}
}

// evictLowestLocked drops the entry with the lowest blended score
// (hitWeight*normalized hits + ageWeight*normalized insertion recency).
// Returns false when the store is empty. Caller holds the lock.
func (s *Store) evictLowestLocked() bool {
	if len(s.entries) == 0 {
		return false
	}

	var (
		oldest, newest time.Time
		maxHits        int
		first          = true
	)
	for _, e := range s.entries {
		if first {
			oldest, newest = e.createdAt, e.createdAt
			first = false
		}
		if e.createdAt.Before(oldest) {
			oldest = e.createdAt
		}
		if e.createdAt.After(newest) {
			newest = e.createdAt
		}
		if e.hitCount > maxHits {
			maxHits = e.hitCount
		}
	}
	span := newest.Sub(oldest)

	lowestKey := ""
	lowestScore := 0.0
	for k, e := range s.entries {
		hitNorm := 0.0
		if maxHits > 0 {
			hitNorm = float64(e.hitCount) / float64(maxHits)
		}
		ageNorm := 1.0
		if span > 0 {
			ageNorm = float64(e.createdAt.Sub(oldest)) / float64(span)
		}
		score := hitWeight*hitNorm + ageWeight*ageNorm
		if lowestKey == "" || score < lowestScore {
			lowestKey, lowestScore = k, score
		}
	}

	s.removeLocked(lowestKey)
	s.stats.Evictions++
	return true
}

// estimateSize approximates the in-memory footprint of a payload. Analysis
// results get a cheap field walk; anything else falls back to its JSON length.
func estimateSize(payload any) int64 {
	switch p := payload.(type) {
	case *model.AnalysisResult:
		size := int64(len(p.SourceName) + len(p.Provenance) + len(p.RiskLevel) + 64)
		for _, t := range p.DetectedPatterns {
			size += int64(len(t))
		}
		for _, sg := range p.Suggestions {
			size += int64(len(sg))
		}
		for _, m := range p.Matches {
			size += int64(len(m.Pattern)+len(m.Excerpt)+len(m.Severity)) + 16
		}
		return size
	case string:
		return int64(len(p))
	case []byte:
		return int64(len(p))
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return 64
		}
		return int64(len(b))
	}
}
