package perf

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/shiro/internal/logging"
)

// Trend bucket retention per window, enforced during periodic compaction.
const (
	hourlyBucketsKept = 24
	dailyBucketsKept  = 7
	weeklyBucketsKept = 4
)

// Hotspot classification constants (first matching rule wins).
const (
	hotThroughput = 10.0 // ops/sec
	hotAvgFloor   = time.Second
)

type trendBucket struct {
	start time.Time
	count int
	total time.Duration
}

type opSeries struct {
	durations  []time.Duration
	count      int
	errors     int
	lastError  string
	lastErrAt  time.Time
	firstStart time.Time
	lastEnd    time.Time
}

// Monitor records timed operations and derives aggregate, percentile and
// hotspot statistics. It never blocks or fails on the timed path: misuse is
// logged and ignored, and all threshold breaches are advisory.
type Monitor struct {
	mu      sync.Mutex
	open    map[string]*Measurement
	history []Measurement
	ops     map[string]*opSeries

	hourly map[int64]*trendBucket
	daily  map[int64]*trendBucket
	weekly map[int64]*trendBucket

	lastCleanup time.Time

	cfg    *Config
	logger logging.Logger
}

// NewMonitor validates the config and constructs an empty monitor.
func NewMonitor(cfg *Config, logger logging.Logger) (*Monitor, error) {
	if logger == nil {
		return nil, errors.New("perf: nil logger provided")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxHistory <= 0 || cfg.MaxPerOpHistory <= 0 {
		return nil, fmt.Errorf("perf: non-positive history bound (history=%d per_op=%d)",
			cfg.MaxHistory, cfg.MaxPerOpHistory)
	}
	if cfg.SlowThreshold <= 0 || cfg.CleanupInterval <= 0 {
		return nil, fmt.Errorf("perf: non-positive threshold (slow=%s cleanup=%s)",
			cfg.SlowThreshold, cfg.CleanupInterval)
	}
	if cfg.ErrorRateThreshold < 0 || cfg.ErrorRateThreshold > 1 {
		return nil, fmt.Errorf("perf: error rate threshold %v outside [0,1]", cfg.ErrorRateThreshold)
	}

	return &Monitor{
		open:        make(map[string]*Measurement),
		ops:         make(map[string]*opSeries),
		hourly:      make(map[int64]*trendBucket),
		daily:       make(map[int64]*trendBucket),
		weekly:      make(map[int64]*trendBucket),
		lastCleanup: time.Now(),
		cfg:         cfg,
		logger:      logger.With(logging.Field{Key: "component", Value: "perf"}),
	}, nil
}

// Start opens a measurement for the named operation and returns its handle.
// O(1); never blocks the caller.
func (m *Monitor) Start(operation string, tags map[string]string) string {
	handle := uuid.New().String()
	meas := &Measurement{
		ID:        handle,
		Operation: operation,
		StartTime: time.Now(),
		Tags:      tags,
	}

	m.mu.Lock()
	m.open[handle] = meas
	m.mu.Unlock()

	return handle
}

// End closes the measurement identified by handle, folding the sample into
// the history, the per-operation series, the error counters and the trend
// buckets. Ending an unknown handle logs a warning and is otherwise a no-op.
func (m *Monitor) End(handle string, opErr error) {
	now := time.Now()

	m.mu.Lock()
	meas, ok := m.open[handle]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("ending unknown measurement handle",
			logging.Field{Key: "handle", Value: handle})
		return
	}
	delete(m.open, handle)

	meas.EndTime = now
	meas.Duration = now.Sub(meas.StartTime)
	if opErr != nil {
		meas.Error = opErr.Error()
	}

	m.recordLocked(*meas)
	slow := meas.Duration > m.cfg.SlowThreshold
	errorRate := 0.0
	if s := m.ops[meas.Operation]; s != nil && s.count > 0 {
		errorRate = float64(s.errors) / float64(s.count)
	}
	cleanupDue := now.Sub(m.lastCleanup) >= m.cfg.CleanupInterval
	if cleanupDue {
		m.cleanupLocked(now)
	}
	m.mu.Unlock()

	// Advisory alerts outside the lock; they must never raise.
	if slow {
		m.logger.Warn("slow operation",
			logging.Field{Key: "operation", Value: meas.Operation},
			logging.Field{Key: "duration", Value: meas.Duration.String()},
			logging.Field{Key: "threshold", Value: m.cfg.SlowThreshold.String()})
	}
	if errorRate > m.cfg.ErrorRateThreshold {
		m.logger.Warn("operation error rate above threshold",
			logging.Field{Key: "operation", Value: meas.Operation},
			logging.Field{Key: "error_rate", Value: errorRate})
	}
	if cleanupDue {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > m.cfg.HighMemoryBytes {
			m.logger.Warn("heap allocation above threshold",
				logging.Field{Key: "heap_alloc", Value: ms.HeapAlloc},
				logging.Field{Key: "threshold", Value: m.cfg.HighMemoryBytes})
		}
	}
}

// recordLocked archives a closed measurement. Caller holds the lock.
func (m *Monitor) recordLocked(meas Measurement) {
	m.history = append(m.history, meas)
	if len(m.history) > m.cfg.MaxHistory {
		m.history = m.history[len(m.history)-m.cfg.MaxHistory:]
	}

	s := m.ops[meas.Operation]
	if s == nil {
		s = &opSeries{firstStart: meas.StartTime}
		m.ops[meas.Operation] = s
	}
	if meas.StartTime.Before(s.firstStart) {
		s.firstStart = meas.StartTime
	}
	if meas.EndTime.After(s.lastEnd) {
		s.lastEnd = meas.EndTime
	}
	s.count++
	s.durations = append(s.durations, meas.Duration)
	if len(s.durations) > m.cfg.MaxPerOpHistory {
		s.durations = s.durations[len(s.durations)-m.cfg.MaxPerOpHistory:]
	}
	if meas.Error != "" {
		s.errors++
		s.lastError = meas.Error
		s.lastErrAt = meas.EndTime
	}

	foldBucket(m.hourly, meas.EndTime.Truncate(time.Hour), meas.Duration)
	foldBucket(m.daily, meas.EndTime.Truncate(24*time.Hour), meas.Duration)
	foldBucket(m.weekly, meas.EndTime.Truncate(7*24*time.Hour), meas.Duration)
}

func foldBucket(buckets map[int64]*trendBucket, start time.Time, d time.Duration) {
	b := buckets[start.Unix()]
	if b == nil {
		b = &trendBucket{start: start}
		buckets[start.Unix()] = b
	}
	b.count++
	b.total += d
}

// cleanupLocked drops trend buckets beyond each window's retention.
// Caller holds the lock.
func (m *Monitor) cleanupLocked(now time.Time) {
	m.lastCleanup = now
	pruneBuckets(m.hourly, hourlyBucketsKept)
	pruneBuckets(m.daily, dailyBucketsKept)
	pruneBuckets(m.weekly, weeklyBucketsKept)
}

func pruneBuckets(buckets map[int64]*trendBucket, keep int) {
	if len(buckets) <= keep {
		return
	}
	starts := make([]int64, 0, len(buckets))
	for s := range buckets {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	for _, s := range starts[:len(starts)-keep] {
		delete(buckets, s)
	}
}

// Stats derives the full aggregate view: overall and per-operation
// percentiles, a recent sample, trend buckets and hotspot classification.
func (m *Monitor) Stats() StatsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]time.Duration, len(m.history))
	for i, meas := range m.history {
		all[i] = meas.Duration
	}

	byOp := make(map[string]OpStats, len(m.ops))
	for name, s := range m.ops {
		byOp[name] = m.opStatsLocked(name, s)
	}

	sampleLen := 20
	if len(m.history) < sampleLen {
		sampleLen = len(m.history)
	}
	sample := make([]Measurement, sampleLen)
	copy(sample, m.history[len(m.history)-sampleLen:])

	return StatsSnapshot{
		Overall:      summarize(all),
		ByOperation:  byOp,
		RecentSample: sample,
		Trends: Trends{
			Hourly: trendPoints(m.hourly),
			Daily:  trendPoints(m.daily),
			Weekly: trendPoints(m.weekly),
		},
		Hotspots: m.hotspotsLocked(),
	}
}

func (m *Monitor) opStatsLocked(name string, s *opSeries) OpStats {
	st := OpStats{
		Operation: name,
		Count:     s.count,
		Durations: summarize(s.durations),
		Errors:    s.errors,
	}
	if s.count > 0 {
		st.ErrorRate = float64(s.errors) / float64(s.count)
	}
	if span := s.lastEnd.Sub(s.firstStart); span > 0 {
		st.Throughput = float64(s.count) / span.Seconds()
	}
	return st
}

// hotspotsLocked classifies each operation with the first matching rule:
// slow average => high impact; frequent and slow => medium impact with a
// caching recommendation; error-prone => high impact. Results are ordered by
// impact descending. Caller holds the lock.
func (m *Monitor) hotspotsLocked() []Hotspot {
	var high, medium []Hotspot
	for name, s := range m.ops {
		st := m.opStatsLocked(name, s)
		h := Hotspot{
			Operation:  name,
			Avg:        st.Durations.Avg,
			Throughput: st.Throughput,
			ErrorRate:  st.ErrorRate,
		}
		switch {
		case st.Durations.Avg > m.cfg.SlowThreshold:
			h.Impact = ImpactHigh
			h.Reason = fmt.Sprintf("average duration %s exceeds slow threshold %s", st.Durations.Avg, m.cfg.SlowThreshold)
			high = append(high, h)
		case st.Throughput > hotThroughput && st.Durations.Avg > hotAvgFloor:
			h.Impact = ImpactMedium
			h.Reason = fmt.Sprintf("high throughput (%.1f ops/sec) with average duration %s", st.Throughput, st.Durations.Avg)
			h.Recommendation = "consider caching results for this operation"
			medium = append(medium, h)
		case st.ErrorRate > m.cfg.ErrorRateThreshold:
			h.Impact = ImpactHigh
			h.Reason = fmt.Sprintf("error rate %.2f exceeds threshold %.2f", st.ErrorRate, m.cfg.ErrorRateThreshold)
			high = append(high, h)
		}
	}
	sort.Slice(high, func(i, j int) bool { return high[i].Avg > high[j].Avg })
	sort.Slice(medium, func(i, j int) bool { return medium[i].Avg > medium[j].Avg })
	return append(high, medium...)
}

// SlowOperations returns per-operation stats for every operation whose
// average duration exceeds threshold, slowest first.
func (m *Monitor) SlowOperations(threshold time.Duration) []OpStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []OpStats
	for name, s := range m.ops {
		st := m.opStatsLocked(name, s)
		if st.Durations.Avg > threshold {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Durations.Avg > out[j].Durations.Avg })
	return out
}

// ErrorSummary returns failure counts and rates per operation, most failures
// first. Operations without errors are omitted.
func (m *Monitor) ErrorSummary() []ErrorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []ErrorStats
	for name, s := range m.ops {
		if s.errors == 0 {
			continue
		}
		out = append(out, ErrorStats{
			Operation: name,
			Count:     s.errors,
			Rate:      float64(s.errors) / float64(s.count),
			LastError: s.lastError,
			LastAt:    s.lastErrAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// MemoryUsage reads process memory stats plus the monitor's own load.
func (m *Monitor) MemoryUsage() MemoryUsage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoryUsage{
		HeapAllocBytes:   ms.HeapAlloc,
		TotalAllocBytes:  ms.TotalAlloc,
		SysBytes:         ms.Sys,
		NumGC:            ms.NumGC,
		OpenMeasurements: len(m.open),
		HistoryLength:    len(m.history),
	}
}

func trendPoints(buckets map[int64]*trendBucket) []TrendPoint {
	points := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		p := TrendPoint{Start: b.start, Count: b.count}
		if b.count > 0 {
			p.Avg = b.total / time.Duration(b.count)
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Start.Before(points[j].Start) })
	return points
}
