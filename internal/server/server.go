package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/raysh454/shiro/internal/app"
	"github.com/raysh454/shiro/internal/logging"
	"github.com/raysh454/shiro/internal/model"
	"github.com/raysh454/shiro/internal/perf"
)

// maxAnalyzeBody bounds how much snippet the API accepts in one request.
const maxAnalyzeBody = 4 << 20

// Server is the HTTP + WebSocket API surface for Shiro.
type Server struct {
	cfg      Config
	engine   *app.Engine
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a new Server with its own Engine.
func NewServer(cfg Config) (*Server, error) {
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 2 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	engine, err := app.NewEngine(cfg.AppConfig, logger, app.Deps{})
	if err != nil {
		return nil, err
	}

	return newServer(cfg, engine, logger), nil
}

// NewServerWithEngine wires a Server around an existing engine. Used by
// main and tests, where the engine's collaborators are built elsewhere.
func NewServerWithEngine(cfg Config, engine *app.Engine) (*Server, error) {
	if engine == nil {
		return nil, errors.New("server: nil engine provided")
	}
	if cfg.AppConfig == nil {
		cfg.AppConfig = app.DefaultConfig()
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}
	return newServer(cfg, engine, logger), nil
}

func newServer(cfg Config, engine *app.Engine, logger logging.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		router: chi.NewRouter(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}
	s.routes()
	return s
}

// Engine returns the underlying engine for advanced use (tests, etc.).
func (s *Server) Engine() *app.Engine {
	return s.engine
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/analyze", s.optionsHandler("POST"))
	r.Options("/history", s.optionsHandler("GET"))
	r.Options("/history/diff", s.optionsHandler("GET"))
	r.Options("/cache", s.optionsHandler("DELETE"))
	r.Options("/stats", s.optionsHandler("GET"))
	r.Options("/stats/slow", s.optionsHandler("GET"))
	r.Options("/stats/errors", s.optionsHandler("GET"))
	r.Options("/stats/memory", s.optionsHandler("GET"))
	r.Options("/health", s.optionsHandler("GET"))
	r.Options("/ws/stats", s.optionsHandler("GET"))

	// Analysis
	r.Post("/analyze", s.handleAnalyze)

	// History
	r.Get("/history", s.handleHistory)
	r.Get("/history/diff", s.handleHistoryDiff)

	// Cache
	r.Delete("/cache", s.handleInvalidateCache)

	// Performance
	r.Get("/stats", s.handleStats)
	r.Get("/stats/slow", s.handleSlowOperations)
	r.Get("/stats/errors", s.handleErrorSummary)
	r.Get("/stats/memory", s.handleMemoryUsage)

	r.Get("/health", s.handleHealth)

	// WebSocket for live stats
	r.Get("/ws/stats", s.handleStatsWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler. Request bodies are not logged: they
// carry the very snippets this service exists to keep private.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}
	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the engine and underlying resources.
func (s *Server) Close() {
	if s.engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.engine.Shutdown(ctx); err != nil {
			s.logger.Warn("engine shutdown", logging.Field{Key: "error", Value: err.Error()})
		}
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// --- HTTP handlers ---

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAnalyzeBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading request body")
		return
	}
	if len(body) > maxAnalyzeBody {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	res, err := s.engine.Analyze(r.Context(), &model.AnalysisRequest{
		Content:  req.Content,
		Language: req.Language,
		Name:     req.Name,
		Options: model.Options{
			IncludeMarkup: req.IncludeMarkup,
			Extra:         req.ExtraOptions,
		},
	})
	if err != nil {
		if errors.Is(err, app.ErrEmptyContent) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Warn("analysis failed", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("analysis complete",
		logging.Field{Key: "source", Value: res.SourceName},
		logging.Field{Key: "risk", Value: string(res.RiskLevel)},
		logging.Field{Key: "provenance", Value: string(res.Provenance)})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.engine.History()
	s.logger.Info("listed scan history", logging.Field{Key: "count", Value: len(entries)})
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryDiff(w http.ResponseWriter, r *http.Request) {
	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, http.StatusBadRequest, "missing source parameter")
		return
	}

	diff, err := s.engine.Diff(source)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	removed := s.engine.InvalidateCache(pattern)
	s.logger.Info("cache invalidated",
		logging.Field{Key: "pattern", Value: pattern},
		logging.Field{Key: "removed", Value: removed})
	writeJSON(w, http.StatusOK, InvalidateCacheResponse{Removed: removed})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleSlowOperations(w http.ResponseWriter, r *http.Request) {
	threshold := s.cfg.AppConfig.PerfCfg.SlowThreshold
	if ts := r.URL.Query().Get("threshold_ms"); ts != "" {
		if d, err := time.ParseDuration(ts + "ms"); err == nil && d > 0 {
			threshold = d
		}
	}
	writeJSON(w, http.StatusOK, s.engine.SlowOperations(threshold))
}

func (s *Server) handleErrorSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.ErrorSummary())
}

func (s *Server) handleMemoryUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.MemoryUsage())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "degraded: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// statsFrame is one /ws/stats push.
type statsFrame struct {
	Stats  perf.StatsSnapshot `json:"stats"`
	Memory perf.MemoryUsage   `json:"memory"`
	At     time.Time          `json:"at"`
}

func (s *Server) handleStatsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()

	// Push one frame immediately so clients render without waiting a tick.
	for {
		frame := statsFrame{
			Stats:  s.engine.Stats(),
			Memory: s.engine.MemoryUsage(),
			At:     time.Now().UTC(),
		}
		if err := conn.WriteJSON(frame); err != nil {
			// Assume client disconnected.
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
