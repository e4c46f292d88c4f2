package perf

import (
	"fmt"
	"testing"
	"time"

	"github.com/raysh454/shiro/internal/interfaces"
)

func TestPercentile_SpecValues(t *testing.T) {
	durations := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
	}
	st := summarize(durations)

	if st.P50 != 30*time.Millisecond {
		t.Fatalf("p50 = %s, want 30ms", st.P50)
	}
	if st.P95 != 50*time.Millisecond {
		t.Fatalf("p95 = %s, want 50ms", st.P95)
	}
	if st.P99 != 50*time.Millisecond {
		t.Fatalf("p99 = %s, want 50ms", st.P99)
	}
	if st.Min != 10*time.Millisecond || st.Max != 50*time.Millisecond {
		t.Fatalf("min/max = %s/%s, want 10ms/50ms", st.Min, st.Max)
	}
}

func TestPercentile_SingleSample(t *testing.T) {
	st := summarize([]time.Duration{42 * time.Millisecond})
	if st.P50 != 42*time.Millisecond || st.P99 != 42*time.Millisecond {
		t.Fatalf("single-sample percentiles should clamp to the sample, got p50=%s p99=%s", st.P50, st.P99)
	}
}

func newMonitorForTest(t *testing.T, cfg *Config) *Monitor {
	t.Helper()
	m, err := NewMonitor(cfg, interfaces.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return m
}

// inject records a synthetic closed measurement so tests control timing.
func inject(m *Monitor, op string, start, end time.Time, err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recordLocked(Measurement{
		ID:        fmt.Sprintf("test-%s-%d", op, end.UnixNano()),
		Operation: op,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Error:     err,
	})
}

func TestHotspots_SlowOperationIsHighImpact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SlowThreshold = 3 * time.Second
	m := newMonitorForTest(t, cfg)

	base := time.Now()
	for i := 0; i < 3; i++ {
		end := base.Add(time.Duration(i) * 10 * time.Second)
		inject(m, "slow.op", end.Add(-6*time.Second), end, "")
	}

	hotspots := m.Stats().Hotspots
	if len(hotspots) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(hotspots))
	}
	if hotspots[0].Operation != "slow.op" || hotspots[0].Impact != ImpactHigh {
		t.Fatalf("expected slow.op high impact, got %+v", hotspots[0])
	}
}

func TestHotspots_FrequentAndSlowIsMediumWithCachingHint(t *testing.T) {
	m := newMonitorForTest(t, nil)

	// 100 samples over 5 seconds (20 ops/sec), each averaging 1200ms.
	base := time.Now()
	for i := 0; i < 100; i++ {
		end := base.Add(time.Duration(i) * 50 * time.Millisecond)
		inject(m, "busy.op", end.Add(-1200*time.Millisecond), end, "")
	}

	hotspots := m.Stats().Hotspots
	if len(hotspots) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(hotspots))
	}
	h := hotspots[0]
	if h.Impact != ImpactMedium {
		t.Fatalf("expected medium impact, got %s (%s)", h.Impact, h.Reason)
	}
	if h.Recommendation == "" {
		t.Fatalf("expected a caching recommendation")
	}
}

func TestHotspots_ErrorProneIsHighImpact(t *testing.T) {
	m := newMonitorForTest(t, nil)

	base := time.Now()
	for i := 0; i < 10; i++ {
		end := base.Add(time.Duration(i) * time.Second)
		errMsg := ""
		if i%2 == 0 {
			errMsg = "boom"
		}
		inject(m, "flaky.op", end.Add(-10*time.Millisecond), end, errMsg)
	}

	hotspots := m.Stats().Hotspots
	if len(hotspots) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(hotspots))
	}
	if hotspots[0].Impact != ImpactHigh || hotspots[0].ErrorRate != 0.5 {
		t.Fatalf("expected high impact at 0.5 error rate, got %+v", hotspots[0])
	}
}

func TestHotspots_OrderedByImpactDescending(t *testing.T) {
	m := newMonitorForTest(t, nil)
	base := time.Now()

	// medium: frequent and slow
	for i := 0; i < 100; i++ {
		end := base.Add(time.Duration(i) * 50 * time.Millisecond)
		inject(m, "busy.op", end.Add(-1200*time.Millisecond), end, "")
	}
	// high: slow average
	for i := 0; i < 3; i++ {
		end := base.Add(time.Duration(i) * 10 * time.Second)
		inject(m, "slow.op", end.Add(-6*time.Second), end, "")
	}

	hotspots := m.Stats().Hotspots
	if len(hotspots) != 2 {
		t.Fatalf("expected 2 hotspots, got %d", len(hotspots))
	}
	if hotspots[0].Impact != ImpactHigh || hotspots[1].Impact != ImpactMedium {
		t.Fatalf("expected high before medium, got %s then %s", hotspots[0].Impact, hotspots[1].Impact)
	}
}

func TestTrends_FoldIntoBuckets(t *testing.T) {
	m := newMonitorForTest(t, nil)

	base := time.Date(2026, 8, 30, 12, 15, 0, 0, time.UTC)
	inject(m, "op", base.Add(-10*time.Millisecond), base, "")
	inject(m, "op", base.Add(20*time.Minute), base.Add(20*time.Minute).Add(30*time.Millisecond), "")
	inject(m, "op", base.Add(2*time.Hour), base.Add(2*time.Hour).Add(50*time.Millisecond), "")

	trends := m.Stats().Trends
	if len(trends.Hourly) != 2 {
		t.Fatalf("expected 2 hourly buckets, got %d", len(trends.Hourly))
	}
	if trends.Hourly[0].Count != 2 {
		t.Fatalf("expected first hourly bucket to hold 2 samples, got %d", trends.Hourly[0].Count)
	}
	if len(trends.Daily) != 1 {
		t.Fatalf("expected 1 daily bucket, got %d", len(trends.Daily))
	}
}
