package cache_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/raysh454/shiro/internal/cache"
	"github.com/raysh454/shiro/internal/interfaces"
	"github.com/raysh454/shiro/internal/model"
)

func newTestStore(t *testing.T, cfg *cache.Config) *cache.Store {
	t.Helper()
	s, err := cache.NewStore(cfg, interfaces.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t, nil)

	res := &model.AnalysisResult{RiskLevel: model.RiskHigh, DetectedPatterns: []string{"secret.password"}}
	s.Set("k1", res, time.Minute)

	got, ok := s.Get("k1")
	if !ok {
		t.Fatalf("expected hit for k1")
	}
	if got != any(res) {
		t.Fatalf("expected identical payload back, got %#v", got)
	}
}

func TestStore_ExpiryIsMissAndRemoves(t *testing.T) {
	s := newTestStore(t, nil)

	s.Set("k1", "payload", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if _, ok := s.Get("k1"); ok {
		t.Fatalf("expected expired entry to miss")
	}
	if s.Len() != 0 {
		t.Fatalf("expected expired entry to be removed, len=%d", s.Len())
	}
}

func TestStore_BoundsNeverExceeded(t *testing.T) {
	cfg := &cache.Config{
		MaxEntries:    5,
		MaxBytes:      1 << 20,
		MaxEntryBytes: 1 << 16,
		DefaultTTL:    time.Minute,
	}
	s := newTestStore(t, cfg)

	for i := 0; i < 50; i++ {
		s.Set(fmt.Sprintf("key-%02d", i), strings.Repeat("x", 100), 0)
		st := s.Stats()
		if st.Entries > cfg.MaxEntries {
			t.Fatalf("entry bound exceeded after set %d: %d", i, st.Entries)
		}
		if st.Bytes > cfg.MaxBytes {
			t.Fatalf("byte bound exceeded after set %d: %d", i, st.Bytes)
		}
	}
	if s.Stats().Evictions == 0 {
		t.Fatalf("expected evictions to have occurred")
	}
}

func TestStore_OversizedPayloadRejected(t *testing.T) {
	cfg := &cache.Config{
		MaxEntries:    10,
		MaxBytes:      1 << 20,
		MaxEntryBytes: 32,
		DefaultTTL:    time.Minute,
	}
	s := newTestStore(t, cfg)

	s.Set("big", strings.Repeat("x", 1000), 0)
	if s.Has("big") {
		t.Fatalf("oversized payload should not be cached")
	}
	if s.Len() != 0 {
		t.Fatalf("store should remain empty, len=%d", s.Len())
	}
}

func TestStore_EvictionPrefersColdOldEntries(t *testing.T) {
	cfg := &cache.Config{
		MaxEntries:    3,
		MaxBytes:      1 << 20,
		MaxEntryBytes: 1 << 16,
		DefaultTTL:    time.Minute,
	}
	s := newTestStore(t, cfg)

	s.Set("old-cold", "a", 0)
	time.Sleep(5 * time.Millisecond)
	s.Set("old-hot", "b", 0)
	time.Sleep(5 * time.Millisecond)
	s.Set("new", "c", 0)

	// Warm up old-hot so its hit term outweighs old-cold's.
	for i := 0; i < 5; i++ {
		if _, ok := s.Get("old-hot"); !ok {
			t.Fatalf("expected old-hot hit")
		}
	}

	s.Set("trigger", "d", 0)

	if s.Has("old-cold") {
		t.Fatalf("expected old-cold to be evicted first")
	}
	if !s.Has("old-hot") {
		t.Fatalf("old-hot should have survived eviction")
	}
}

func TestStore_InvalidateByPattern(t *testing.T) {
	s := newTestStore(t, nil)

	s.Set("proj-a:file1", 1, 0)
	s.Set("proj-a:file2", 2, 0)
	s.Set("proj-b:file1", 3, 0)

	removed := s.Invalidate("proj-a")
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if !s.Has("proj-b:file1") {
		t.Fatalf("unrelated entry should survive invalidation")
	}
}

func TestStore_OptimizePrunesExpired(t *testing.T) {
	s := newTestStore(t, nil)

	s.Set("short", "a", 5*time.Millisecond)
	s.Set("long", "b", time.Minute)
	time.Sleep(20 * time.Millisecond)

	s.Optimize()

	if s.Len() != 1 {
		t.Fatalf("expected 1 entry after optimize, got %d", s.Len())
	}
	if !s.Has("long") {
		t.Fatalf("long-ttl entry should survive optimize")
	}
}

func TestNewStore_RejectsInvalidBounds(t *testing.T) {
	bad := []*cache.Config{
		{MaxEntries: 0, MaxBytes: 1, MaxEntryBytes: 1, DefaultTTL: time.Second},
		{MaxEntries: 1, MaxBytes: -1, MaxEntryBytes: 1, DefaultTTL: time.Second},
		{MaxEntries: 1, MaxBytes: 1, MaxEntryBytes: 1, DefaultTTL: 0},
	}
	for i, cfg := range bad {
		if _, err := cache.NewStore(cfg, interfaces.NewTestLogger(false)); err == nil {
			t.Fatalf("config %d: expected construction error", i)
		}
	}
}

func TestFingerprint_DeterministicAndOrderIndependent(t *testing.T) {
	a := cache.Fingerprint("content", "go", model.Options{Extra: map[string]string{"a": "1", "b": "2"}})
	b := cache.Fingerprint("content", "go", model.Options{Extra: map[string]string{"b": "2", "a": "1"}})
	if a != b {
		t.Fatalf("fingerprint should not depend on option order: %s vs %s", a, b)
	}

	if cache.Fingerprint("content", "go", model.Options{}) == cache.Fingerprint("content", "js", model.Options{}) {
		t.Fatalf("different languages must produce different fingerprints")
	}
	if cache.Fingerprint("content", "go", model.Options{}) == cache.Fingerprint("content", "go", model.Options{IncludeMarkup: true}) {
		t.Fatalf("different options must produce different fingerprints")
	}
}
