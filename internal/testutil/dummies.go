// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
	"github.com/raysh454/shiro/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Detector ──────────────────────────────────────────────────────────

// DummyDetector implements interfaces.Detector with a fixed answer.
// Calls counts invocations; Delay simulates analysis latency; Err, when
// set, is returned instead of a result.
type DummyDetector struct {
	DetectorName string
	Result       *model.AnalysisResult
	Err          error
	Delay        time.Duration

	Calls atomic.Int64
}

func (d *DummyDetector) Name() string {
	if d.DetectorName == "" {
		return "dummy"
	}
	return d.DetectorName
}

func (d *DummyDetector) Detect(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	d.Calls.Add(1)
	if d.Delay > 0 {
		select {
		case <-time.After(d.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if d.Result != nil {
		// Copy so callers stamping provenance do not race on a shared value.
		res := *d.Result
		return &res, nil
	}
	return &model.AnalysisResult{RiskLevel: model.RiskLow}, nil
}

// ─── HistoryStore ──────────────────────────────────────────────────────

// DummyHistoryStore implements interfaces.HistoryStore in memory.
type DummyHistoryStore struct {
	mu     sync.Mutex
	Saved  [][]*model.AnalysisResult
	Window []*model.AnalysisResult

	SaveErr error
	LoadErr error
	Closed  bool
}

func (s *DummyHistoryStore) Save(_ context.Context, results []*model.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	window := append([]*model.AnalysisResult(nil), results...)
	s.Saved = append(s.Saved, window)
	s.Window = window
	return nil
}

func (s *DummyHistoryStore) Load(_ context.Context) ([]*model.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return append([]*model.AnalysisResult(nil), s.Window...), nil
}

func (s *DummyHistoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// SaveCount returns how many Save calls completed.
func (s *DummyHistoryStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Saved)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements interfaces.WebClient.
// By default it returns body "ok:<url>" with status 200.
type DummyWebClient struct {
	Status int
	Body   []byte
	Err    error
}

func (c *DummyWebClient) Do(_ context.Context, req *webclient.Request) (*webclient.Response, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	status := c.Status
	if status == 0 {
		status = 200
	}
	body := c.Body
	if body == nil {
		body = []byte("ok:" + req.URL)
	}
	return &webclient.Response{StatusCode: status, Body: body}, nil
}

func (c *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return c.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (c *DummyWebClient) Close() error { return nil }
