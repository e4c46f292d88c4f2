package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/shiro/internal/interfaces"
	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
)

// ErrCircuitOpen is returned when the breaker rejects the request without
// touching the network. The engine treats it like any other tier failure.
var ErrCircuitOpen = errors.New("remote: circuit open, tier skipped")

const (
	healthPath  = "/api/v1/health"
	analyzePath = "/api/v1/analyze"
)

type analyzeRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
	Name     string `json:"name,omitempty"`
}

type analyzeResponse struct {
	Success bool                  `json:"success"`
	Result  *model.AnalysisResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// Client is the secondary detection tier: it forwards requests to a remote
// detection service, guarded by a circuit breaker so an unreachable service
// is skipped without re-probing on every request. Implements
// interfaces.Detector and interfaces.HealthChecker.
type Client struct {
	cfg     *Config
	wc      interfaces.WebClient
	breaker *Breaker
	logger  logging.Logger
}

// NewClient constructs the remote tier. BaseURL is required.
func NewClient(cfg *Config, wc interfaces.WebClient, logger logging.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("remote: nil logger provided")
	}
	if wc == nil {
		return nil, errors.New("remote: nil webclient provided")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("remote: base URL is required")
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultConfig().ProbeTimeout
	}

	l := logger.With(logging.Field{Key: "component", Value: "remote-detector"})
	l.Info("remote detector constructed",
		logging.Field{Key: "base_url", Value: cfg.BaseURL},
		logging.Field{Key: "retry_interval", Value: cfg.RetryInterval.String()})

	return &Client{
		cfg:     cfg,
		wc:      wc,
		breaker: NewBreaker(cfg.FailureThreshold, cfg.RetryInterval),
		logger:  l,
	}, nil
}

// Name returns the provenance tag for this tier.
func (c *Client) Name() string { return string(model.ProvenanceRemote) }

// Breaker exposes the circuit breaker for inspection.
func (c *Client) Breaker() *Breaker { return c.breaker }

// Health probes the service's health endpoint, bounded by the probe timeout.
func (c *Client) Health(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	resp, err := c.wc.Get(probeCtx, c.cfg.BaseURL+healthPath)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Detect forwards the request to the remote service. The breaker gates the
// call: when open it fails fast, and the first call after the retry interval
// runs a bounded health probe before committing to the analyze call.
func (c *Client) Detect(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	if req == nil {
		return nil, errors.New("remote: nil request")
	}
	if !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}
	if c.breaker.State() == StateHalfOpen {
		if err := c.Health(ctx); err != nil {
			c.breaker.RecordFailure()
			c.logger.Warn("half-open probe failed, reopening circuit",
				logging.Field{Key: "error", Value: err.Error()})
			return nil, err
		}
	}

	result, err := c.analyze(ctx, req)
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("remote analyze failed",
			logging.Field{Key: "state", Value: string(c.breaker.State())},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, err
	}

	c.breaker.RecordSuccess()
	return result, nil
}

func (c *Client) analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	body, err := json.Marshal(analyzeRequest{
		Content:  req.Content,
		Language: req.Language,
		Name:     req.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.wc.Do(ctx, &model.HTTPRequest{
		Method:  http.MethodPost,
		URL:     c.cfg.BaseURL + analyzePath,
		Headers: http.Header{"Content-Type": []string{"application/json"}},
		Body:    body,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze call: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze call: unexpected status %d", resp.StatusCode)
	}

	var decoded analyzeResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !decoded.Success || decoded.Result == nil {
		if decoded.Error != "" {
			return nil, fmt.Errorf("remote service error: %s", decoded.Error)
		}
		return nil, errors.New("remote service returned no result")
	}

	result := decoded.Result
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}
	return result, nil
}
