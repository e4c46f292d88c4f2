package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/shiro/internal/cache"
	"github.com/raysh454/shiro/internal/detector"
	"github.com/raysh454/shiro/internal/history"
	"github.com/raysh454/shiro/internal/interfaces"
	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
	"github.com/raysh454/shiro/internal/perf"
	"github.com/raysh454/shiro/internal/remote"
	"github.com/raysh454/shiro/internal/webclient"
)

var ErrEmptyContent = errors.New("app: empty content")

// Deps carries the engine's injectable collaborators. Nil fields are
// constructed from config, so callers only override what they need.
type Deps struct {
	Primary  interfaces.Detector
	Remote   interfaces.Detector
	Fallback interfaces.Detector
	Store    interfaces.HistoryStore
}

// inflight tracks one in-progress analysis. Followers wait on done and
// read res/err afterwards; the leader closes done exactly once.
type inflight struct {
	done chan struct{}
	res  *model.AnalysisResult
	err  error
}

// Engine ties the detector tiers, result cache, history and performance
// monitor together. Analyze is the single entry point: every other method
// is a read-side view over state Analyze maintains.
type Engine struct {
	cfg    *Config
	logger logging.Logger

	cache   *cache.Store
	monitor *perf.Monitor

	primary  interfaces.Detector
	remote   interfaces.Detector
	fallback interfaces.Detector

	scanLog   *history.Log
	store     interfaces.HistoryStore
	persister *history.Persister

	inflightMu sync.Mutex
	inflightBy map[string]*inflight
}

// NewEngine wires an engine from config and optional pre-built deps.
func NewEngine(cfg *Config, logger logging.Logger, deps Deps) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		return nil, errors.New("app: nil logger provided")
	}

	store, err := cache.NewStore(&cfg.CacheCfg, logger.With(logging.Field{Key: "component", Value: "cache"}))
	if err != nil {
		return nil, fmt.Errorf("failed to build result cache: %w", err)
	}
	monitor, err := perf.NewMonitor(&cfg.PerfCfg, logger.With(logging.Field{Key: "component", Value: "perf"}))
	if err != nil {
		return nil, fmt.Errorf("failed to build performance monitor: %w", err)
	}

	primary := deps.Primary
	if primary == nil {
		primary, err = detector.NewModular(&cfg.DetectorCfg, logger.With(logging.Field{Key: "component", Value: "detector"}))
		if err != nil {
			return nil, fmt.Errorf("failed to build primary detector: %w", err)
		}
	}

	remoteDet := deps.Remote
	if remoteDet == nil && cfg.RemoteEnabled {
		wc, err := webclient.NewNetHTTPClient(&cfg.WebClientCfg, logger.With(logging.Field{Key: "component", Value: "webclient"}), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build web client: %w", err)
		}
		remoteDet, err = remote.NewClient(&cfg.RemoteCfg, wc, logger.With(logging.Field{Key: "component", Value: "remote"}))
		if err != nil {
			return nil, fmt.Errorf("failed to build remote client: %w", err)
		}
	}

	fallback := deps.Fallback
	if fallback == nil {
		fallback = detector.NewFallback()
	}

	hs := deps.Store
	if hs == nil {
		hs, err = history.NewSQLiteStore(logger.With(logging.Field{Key: "component", Value: "history"}), &cfg.HistoryCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build history store: %w", err)
		}
	}

	e := &Engine{
		cfg:        cfg,
		logger:     logger.With(logging.Field{Key: "component", Value: "engine"}),
		cache:      store,
		monitor:    monitor,
		primary:    primary,
		remote:     remoteDet,
		fallback:   fallback,
		scanLog:    history.NewLog(),
		store:      hs,
		persister:  history.NewPersister(hs, logger.With(logging.Field{Key: "component", Value: "persister"}), history.MaxAge),
		inflightBy: make(map[string]*inflight),
	}

	// Rehydrate the scan log so history survives restarts.
	if prev, err := hs.Load(context.Background()); err != nil {
		e.logger.Warn("failed to load scan history", logging.Field{Key: "error", Value: err.Error()})
	} else if len(prev) > 0 {
		e.scanLog.Seed(prev)
		e.logger.Info("scan history loaded", logging.Field{Key: "entries", Value: len(prev)})
	}

	return e, nil
}

// Analyze runs the full pipeline for one snippet: cache lookup, detector
// chain on miss, then cache write-through and history bookkeeping.
// Concurrent calls for an identical request share one computation and
// receive the same result.
func (e *Engine) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	if req == nil || req.Content == "" {
		return nil, ErrEmptyContent
	}

	total := e.monitor.Start("analyze.total", map[string]string{"language": req.Language})
	started := time.Now()

	fp := cache.Fingerprint(req.Content, req.Language, req.Options)

	lookup := e.monitor.Start("cache.lookup", nil)
	payload, hit := e.cache.Get(fp)
	e.monitor.End(lookup, nil)

	if hit {
		if cached, ok := payload.(*model.AnalysisResult); ok {
			res := *cached
			res.Provenance = model.ProvenanceCache
			res.Latency = time.Since(started)
			e.monitor.End(total, nil)
			return &res, nil
		}
	}

	// Coalesce concurrent identical requests onto one computation.
	e.inflightMu.Lock()
	if call, ok := e.inflightBy[fp]; ok {
		e.inflightMu.Unlock()
		select {
		case <-call.done:
			e.monitor.End(total, call.err)
			return call.res, call.err
		case <-ctx.Done():
			e.monitor.End(total, ctx.Err())
			return nil, ctx.Err()
		}
	}
	call := &inflight{done: make(chan struct{})}
	e.inflightBy[fp] = call
	e.inflightMu.Unlock()

	res, err := e.analyzeMiss(ctx, req, fp, started)

	call.res, call.err = res, err
	e.inflightMu.Lock()
	delete(e.inflightBy, fp)
	e.inflightMu.Unlock()
	close(call.done)

	e.monitor.End(total, err)
	return res, err
}

// analyzeMiss runs the detector chain and records the outcome.
func (e *Engine) analyzeMiss(ctx context.Context, req *model.AnalysisRequest, fp string, started time.Time) (*model.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := e.runChain(ctx, req)
	if err != nil {
		return nil, err
	}

	res.SourceName = req.Name
	res.Timestamp = time.Now().UTC()
	res.Latency = time.Since(started)

	e.cache.Set(fp, res, e.cfg.ResultTTL)

	persist := e.monitor.Start("history.persist", nil)
	e.scanLog.Append(res)
	e.persister.Submit(e.scanLog)
	e.monitor.End(persist, nil)

	return res, nil
}

// runChain tries each detector tier in order. The primary tier is skipped
// on error or an empty answer (no findings), the remote tier on error; the
// fallback always produces a result.
func (e *Engine) runChain(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	h := e.monitor.Start("analyze.primary", nil)
	res, err := e.primary.Detect(ctx, req)
	e.monitor.End(h, err)
	if err == nil && res != nil && !res.Empty() {
		res.Provenance = model.ProvenanceModular
		return res, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Warn("primary detector failed",
			logging.Field{Key: "detector", Value: e.primary.Name()},
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		e.logger.Debug("primary detector found nothing, advancing",
			logging.Field{Key: "detector", Value: e.primary.Name()})
	}

	if e.remote != nil {
		h := e.monitor.Start("analyze.remote", nil)
		res, err = e.remote.Detect(ctx, req)
		e.monitor.End(h, err)
		if err == nil && res != nil {
			res.Provenance = model.ProvenanceRemote
			return res, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("remote analysis failed",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	h = e.monitor.Start("analyze.fallback", nil)
	res, err = e.fallback.Detect(ctx, req)
	e.monitor.End(h, err)
	if err != nil {
		return nil, fmt.Errorf("all detector tiers failed: %w", err)
	}
	res.Provenance = model.ProvenanceLocalFallback
	return res, nil
}

// History returns the recent-scan log, oldest-first.
func (e *Engine) History() []*model.AnalysisResult {
	return e.scanLog.Snapshot()
}

// Diff compares the two most recent scans of sourceName.
func (e *Engine) Diff(sourceName string) (*history.ScanDiff, error) {
	older, newer, ok := e.scanLog.LatestPair(sourceName)
	if !ok {
		return nil, fmt.Errorf("app: need at least two scans of %q to diff", sourceName)
	}
	return history.DiffResults(older, newer)
}

// Stats returns the performance snapshot.
func (e *Engine) Stats() perf.StatsSnapshot {
	return e.monitor.Stats()
}

// SlowOperations lists operations whose average exceeds threshold.
func (e *Engine) SlowOperations(threshold time.Duration) []perf.OpStats {
	return e.monitor.SlowOperations(threshold)
}

// ErrorSummary aggregates per-operation error counts.
func (e *Engine) ErrorSummary() []perf.ErrorStats {
	return e.monitor.ErrorSummary()
}

// MemoryUsage reports current process memory.
func (e *Engine) MemoryUsage() perf.MemoryUsage {
	return e.monitor.MemoryUsage()
}

// CacheStats returns result-cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// InvalidateCache drops cached results whose key matches pattern and
// returns the count removed.
func (e *Engine) InvalidateCache(pattern string) int {
	return e.cache.Invalidate(pattern)
}

// Health reports readiness of the remote tier when one is configured.
// A local-only engine is always healthy.
func (e *Engine) Health(ctx context.Context) error {
	hc, ok := e.remote.(interfaces.HealthChecker)
	if e.remote == nil || !ok {
		return nil
	}
	return hc.Health(ctx)
}

// Shutdown drains pending history writes and closes the store.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.logger.Info("engine shutdown initiated")
	if err := e.persister.Flush(ctx); err != nil {
		e.logger.Warn("history flush incomplete", logging.Field{Key: "error", Value: err.Error()})
	}
	return e.store.Close()
}
