package perf_test

import (
	"errors"
	"testing"
	"time"

	"github.com/raysh454/shiro/internal/interfaces"
	"github.com/raysh454/shiro/internal/perf"
)

func newMonitor(t *testing.T, cfg *perf.Config) *perf.Monitor {
	t.Helper()
	m, err := perf.NewMonitor(cfg, interfaces.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return m
}

func TestMonitor_StartEndRoundTrip(t *testing.T) {
	m := newMonitor(t, nil)

	h := m.Start("analyze.total", map[string]string{"language": "go"})
	time.Sleep(5 * time.Millisecond)
	m.End(h, nil)

	st := m.Stats()
	op, ok := st.ByOperation["analyze.total"]
	if !ok {
		t.Fatalf("expected stats for analyze.total")
	}
	if op.Count != 1 || op.Errors != 0 {
		t.Fatalf("unexpected op stats: %+v", op)
	}
	if op.Durations.Avg <= 0 {
		t.Fatalf("expected positive average duration, got %s", op.Durations.Avg)
	}
	if len(st.RecentSample) != 1 {
		t.Fatalf("expected 1 recent sample, got %d", len(st.RecentSample))
	}
}

func TestMonitor_EndUnknownHandleIsNoOp(t *testing.T) {
	m := newMonitor(t, nil)

	// Must not panic and must not record anything.
	m.End("not-a-handle", nil)
	m.End("", errors.New("ignored"))

	if st := m.Stats(); st.Overall.Count != 0 {
		t.Fatalf("unknown handle should record nothing, got count %d", st.Overall.Count)
	}
}

func TestMonitor_HistoryIsBounded(t *testing.T) {
	cfg := perf.DefaultConfig()
	cfg.MaxHistory = 10
	cfg.MaxPerOpHistory = 5
	m := newMonitor(t, cfg)

	for i := 0; i < 30; i++ {
		h := m.Start("op", nil)
		m.End(h, nil)
	}

	st := m.Stats()
	if st.Overall.Count > 10 {
		t.Fatalf("global history exceeded bound: %d", st.Overall.Count)
	}
	if op := st.ByOperation["op"]; op.Durations.Count > 5 {
		t.Fatalf("per-op series exceeded bound: %d", op.Durations.Count)
	}
	if mem := m.MemoryUsage(); mem.OpenMeasurements != 0 {
		t.Fatalf("expected no open measurements, got %d", mem.OpenMeasurements)
	}
}

func TestMonitor_ErrorSummary(t *testing.T) {
	m := newMonitor(t, nil)

	h := m.Start("ok.op", nil)
	m.End(h, nil)

	for i := 0; i < 3; i++ {
		h := m.Start("bad.op", nil)
		m.End(h, errors.New("remote unreachable"))
	}

	summary := m.ErrorSummary()
	if len(summary) != 1 {
		t.Fatalf("expected 1 error entry, got %d", len(summary))
	}
	e := summary[0]
	if e.Operation != "bad.op" || e.Count != 3 || e.Rate != 1.0 {
		t.Fatalf("unexpected error stats: %+v", e)
	}
	if e.LastError != "remote unreachable" {
		t.Fatalf("unexpected last error: %q", e.LastError)
	}
}

func TestMonitor_SlowOperations(t *testing.T) {
	m := newMonitor(t, nil)

	h := m.Start("slowish", nil)
	time.Sleep(20 * time.Millisecond)
	m.End(h, nil)

	h = m.Start("fast", nil)
	m.End(h, nil)

	slow := m.SlowOperations(10 * time.Millisecond)
	if len(slow) != 1 || slow[0].Operation != "slowish" {
		t.Fatalf("expected only slowish above threshold, got %+v", slow)
	}
}

func TestNewMonitor_RejectsInvalidConfig(t *testing.T) {
	bad := []*perf.Config{
		{MaxHistory: 0, MaxPerOpHistory: 1, SlowThreshold: time.Second, CleanupInterval: time.Second},
		{MaxHistory: 1, MaxPerOpHistory: 1, SlowThreshold: 0, CleanupInterval: time.Second},
		{MaxHistory: 1, MaxPerOpHistory: 1, SlowThreshold: time.Second, CleanupInterval: time.Second, ErrorRateThreshold: 1.5},
	}
	for i, cfg := range bad {
		if _, err := perf.NewMonitor(cfg, interfaces.NewTestLogger(false)); err == nil {
			t.Fatalf("config %d: expected construction error", i)
		}
	}
}
