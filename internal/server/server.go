// Package server provides the HTTP REST API for managing wiki projects and
// running generation and upload batches.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/llm"
	"github.com/jonathan/wiki-generator/internal/observability"
	"github.com/jonathan/wiki-generator/internal/pipeline"
	"github.com/jonathan/wiki-generator/internal/project"
	"github.com/jonathan/wiki-generator/internal/server/ratelimit"
)

// ClientFactory creates the model client for one generation batch.
type ClientFactory func(ctx context.Context) (llm.Client, error)

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	store        *project.Store
	ledger       db.Ledger
	metrics      *observability.Metrics
	logger       *slog.Logger
	newClient    ClientFactory
	newAdapter   pipeline.AdapterFactory
	uploadDelay  time.Duration
	pollInterval time.Duration
	rateLimiter  *ratelimit.Limiter
	manager      *pipeline.Manager
}

// Config holds server configuration
type Config struct {
	Port  int
	Store *project.Store
	// Ledger records batch history. Optional.
	Ledger  db.Ledger
	Metrics *observability.Metrics
	Logger  *slog.Logger
	// NewClient is required for generation batches.
	NewClient  ClientFactory
	NewAdapter pipeline.AdapterFactory
	// UploadDelay spaces uploads within a batch.
	UploadDelay time.Duration
	// PollInterval is how often progress streams check for changes. Defaults to 500ms.
	PollInterval time.Duration
	// RateLimit defaults to ratelimit.LoadConfig().
	RateLimit *ratelimit.Config
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("project store is required")
	}

	s := &Server{
		store:        cfg.Store,
		ledger:       cfg.Ledger,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		newClient:    cfg.NewClient,
		newAdapter:   cfg.NewAdapter,
		uploadDelay:  cfg.UploadDelay,
		pollInterval: cfg.PollInterval,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.newAdapter == nil {
		s.newAdapter = pipeline.DefaultAdapterFactory(s.logger)
	}
	if s.pollInterval <= 0 {
		s.pollInterval = 500 * time.Millisecond
	}
	rl := cfg.RateLimit
	if rl == nil {
		rl = ratelimit.LoadConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(rl)
	s.manager = pipeline.NewManager(s.logger, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Projects
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("POST /projects", s.handleCreateProject)
	mux.HandleFunc("GET /projects/{id}", s.handleGetProject)
	mux.HandleFunc("PUT /projects/{id}", s.handleUpdateProject)
	mux.HandleFunc("POST /connection/test", s.handleTestConnection)

	// Structure and link banks
	mux.HandleFunc("GET /projects/{id}/structure", s.handleGetStructure)
	mux.HandleFunc("PUT /projects/{id}/structure", s.handlePutStructure)
	mux.HandleFunc("POST /projects/{id}/structure/import", s.handleImportStructure)
	mux.HandleFunc("GET /projects/{id}/links", s.handleGetLinks)
	mux.HandleFunc("PUT /projects/{id}/links", s.handlePutLinks)
	mux.HandleFunc("GET /projects/{id}/masking-links", s.handleGetMaskingLinks)
	mux.HandleFunc("PUT /projects/{id}/masking-links", s.handlePutMaskingLinks)

	// Batches
	mux.HandleFunc("POST /projects/{id}/generate", s.handleGenerate)
	mux.HandleFunc("GET /projects/{id}/generate/progress", s.handleGenerateProgress)
	mux.HandleFunc("GET /projects/{id}/generate/stream", s.handleGenerateStream)
	mux.HandleFunc("POST /projects/{id}/upload", s.handleUpload)
	mux.HandleFunc("GET /projects/{id}/upload/progress", s.handleUploadProgress)

	// Generated and live pages
	mux.HandleFunc("GET /projects/{id}/review", s.handleReview)
	mux.HandleFunc("GET /projects/{id}/pages/{filename}", s.handleGetPage)
	mux.HandleFunc("GET /projects/{id}/live-pages", s.handleListLivePages)
	mux.HandleFunc("GET /projects/{id}/live-page", s.handleGetLivePage)
	mux.HandleFunc("POST /projects/{id}/live-page", s.handleSaveLivePage)

	// Run history
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)

	port := cfg.Port
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.withMetrics(s.withRateLimit(s.withLogging(s.withCORS(mux)))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // progress streams stay open for the whole batch
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the full middleware chain. Tests serve it with httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Manager exposes the batch manager.
func (s *Server) Manager() *pipeline.Manager {
	return s.manager
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// Running batches are not awaited.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("server starting", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("server stopped")
	return err
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request completed", "method", r.Method, "path", r.URL.Path,
			"remote", r.RemoteAddr, "duration", time.Since(start))
	})
}

// withMetrics counts requests by method and status code.
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.HTTPRequest(r.Method, rec.status)
	})
}

// statusRecorder captures the response status and keeps streaming working.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFrom writes err with the status HTTPStatus picks for it.
func (s *Server) errorFrom(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.errorResponse(w, status, err.Error())
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

const maxBodyBytes = 4 << 20

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.logger.Warn("rate limit exceeded", "limit", info.Limit, "reset", info.ResetTime.Format(time.RFC3339))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
