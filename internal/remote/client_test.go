package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raysh454/shiro/internal/interfaces"
	"github.com/raysh454/shiro/internal/model"
	"github.com/raysh454/shiro/internal/remote"
	"github.com/raysh454/shiro/internal/webclient"
)

func newRemoteClient(t *testing.T, baseURL string, threshold int) *remote.Client {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(nil, interfaces.NewTestLogger(false), nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	cfg := remote.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.FailureThreshold = threshold
	cfg.RetryInterval = 10 * time.Millisecond
	c, err := remote.NewClient(cfg, wc, interfaces.NewTestLogger(false))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_DetectSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/health":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/analyze":
			var req struct {
				Content  string `json:"content"`
				Language string `json:"language"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.Language != "javascript" {
				t.Errorf("unexpected language %q", req.Language)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"result": &model.AnalysisResult{
					RiskLevel:        model.RiskHigh,
					DetectedPatterns: []string{"secret.password"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := newRemoteClient(t, srv.URL, 3)

	res, err := c.Detect(context.Background(), &model.AnalysisRequest{
		Content:  "password: 'abc123'",
		Language: "javascript",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if res.RiskLevel != model.RiskHigh || !res.HasPattern("secret.password") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.Breaker().State() != remote.StateClosed {
		t.Fatalf("breaker should stay closed after success")
	}
}

func TestClient_ServiceErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "model overloaded"})
	}))
	defer srv.Close()

	c := newRemoteClient(t, srv.URL, 3)
	if _, err := c.Detect(context.Background(), &model.AnalysisRequest{Content: "x"}); err == nil {
		t.Fatalf("expected error for unsuccessful response")
	}
}

func TestClient_FailuresOpenCircuitAndSkipNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newRemoteClient(t, srv.URL, 2)
	req := &model.AnalysisRequest{Content: "x", Language: "go"}

	for i := 0; i < 2; i++ {
		if _, err := c.Detect(context.Background(), req); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}
	if c.Breaker().State() != remote.StateOpen {
		t.Fatalf("breaker should be open, got %s", c.Breaker().State())
	}

	before := calls
	_, err := c.Detect(context.Background(), req)
	if !errors.Is(err, remote.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if calls != before {
		t.Fatalf("open circuit must not touch the network")
	}
}

func TestClient_HalfOpenProbeRecovers(t *testing.T) {
	healthy := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch r.URL.Path {
		case "/api/v1/health":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/analyze":
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"result":  &model.AnalysisResult{RiskLevel: model.RiskLow},
			})
		}
	}))
	defer srv.Close()

	c := newRemoteClient(t, srv.URL, 1)
	req := &model.AnalysisRequest{Content: "x", Language: "go"}

	if _, err := c.Detect(context.Background(), req); err == nil {
		t.Fatalf("expected initial failure")
	}
	if c.Breaker().State() != remote.StateOpen {
		t.Fatalf("breaker should be open, got %s", c.Breaker().State())
	}

	healthy = true
	time.Sleep(20 * time.Millisecond)

	res, err := c.Detect(context.Background(), req)
	if err != nil {
		t.Fatalf("expected recovery after retry interval: %v", err)
	}
	if res.RiskLevel != model.RiskLow {
		t.Fatalf("unexpected result: %+v", res)
	}
	if c.Breaker().State() != remote.StateClosed {
		t.Fatalf("breaker should close after successful probe, got %s", c.Breaker().State())
	}
}
