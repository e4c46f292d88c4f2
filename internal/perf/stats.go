package perf

import (
	"math"
	"sort"
	"time"
)

// Measurement is one timed operation. Lifecycle: open (started) -> closed
// (ended) -> archived in the bounded history, evicted oldest-first.
type Measurement struct {
	ID        string            `json:"id"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
	Duration  time.Duration     `json:"duration_ns,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// DurationStats summarizes a duration series.
type DurationStats struct {
	Count int           `json:"count"`
	Min   time.Duration `json:"min_ns"`
	Max   time.Duration `json:"max_ns"`
	Avg   time.Duration `json:"avg_ns"`
	P50   time.Duration `json:"p50_ns"`
	P95   time.Duration `json:"p95_ns"`
	P99   time.Duration `json:"p99_ns"`
}

// OpStats is the per-operation aggregate view. Count is the total number of
// closed measurements; Durations summarizes only the bounded retained series.
type OpStats struct {
	Operation  string        `json:"operation"`
	Count      int           `json:"count"`
	Durations  DurationStats `json:"durations"`
	Errors     int           `json:"errors"`
	ErrorRate  float64       `json:"error_rate"`
	Throughput float64       `json:"throughput_ops_per_sec"`
}

// TrendPoint is one time bucket of folded samples.
type TrendPoint struct {
	Start time.Time     `json:"start"`
	Count int           `json:"count"`
	Avg   time.Duration `json:"avg_ns"`
}

// Trends groups trend buckets by window granularity.
type Trends struct {
	Hourly []TrendPoint `json:"hourly"`
	Daily  []TrendPoint `json:"daily"`
	Weekly []TrendPoint `json:"weekly"`
}

// HotspotImpact ranks a hotspot finding.
type HotspotImpact string

const (
	ImpactHigh   HotspotImpact = "high"
	ImpactMedium HotspotImpact = "medium"
)

// Hotspot is one operation flagged as abnormally slow, frequent-and-slow, or
// error-prone.
type Hotspot struct {
	Operation      string        `json:"operation"`
	Impact         HotspotImpact `json:"impact"`
	Reason         string        `json:"reason"`
	Recommendation string        `json:"recommendation,omitempty"`
	Avg            time.Duration `json:"avg_ns"`
	Throughput     float64       `json:"throughput_ops_per_sec"`
	ErrorRate      float64       `json:"error_rate"`
}

// StatsSnapshot is the full derived view returned by Monitor.Stats.
type StatsSnapshot struct {
	Overall      DurationStats      `json:"overall"`
	ByOperation  map[string]OpStats `json:"by_operation"`
	RecentSample []Measurement      `json:"recent_sample"`
	Trends       Trends             `json:"trends"`
	Hotspots     []Hotspot          `json:"hotspots"`
}

// ErrorStats summarizes failures for one operation name.
type ErrorStats struct {
	Operation string    `json:"operation"`
	Count     int       `json:"count"`
	Rate      float64   `json:"rate"`
	LastError string    `json:"last_error,omitempty"`
	LastAt    time.Time `json:"last_at,omitempty"`
}

// MemoryUsage is a point-in-time view of process memory plus monitor load.
type MemoryUsage struct {
	HeapAllocBytes   uint64 `json:"heap_alloc_bytes"`
	TotalAllocBytes  uint64 `json:"total_alloc_bytes"`
	SysBytes         uint64 `json:"sys_bytes"`
	NumGC            uint32 `json:"num_gc"`
	OpenMeasurements int    `json:"open_measurements"`
	HistoryLength    int    `json:"history_length"`
}

// percentile returns the p-quantile (0 < p <= 1) of durations by sorting
// ascending and indexing at ceil(n*p)-1, clamped to [0, n-1].
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(n)*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// summarize computes DurationStats over a series. The input is not mutated.
func summarize(durations []time.Duration) DurationStats {
	if len(durations) == 0 {
		return DurationStats{}
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	return DurationStats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
		Avg:   total / time.Duration(len(sorted)),
		P50:   percentile(sorted, 0.50),
		P95:   percentile(sorted, 0.95),
		P99:   percentile(sorted, 0.99),
	}
}
