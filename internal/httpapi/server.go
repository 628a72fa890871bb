// Package httpapi is the read-only monitor server: /healthz for upstream
// source health, /metrics for Prometheus exposition, and /decision/latest
// for the most recent emitted decision. A mux.Router behind request-id
// and logging middleware, local-only by default.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/jolyonbrown/ronclanker/internal/adapters/resilience"
	"github.com/jolyonbrown/ronclanker/internal/repository"
	"github.com/jolyonbrown/ronclanker/internal/telemetry"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ServerConfig holds the monitor server's listen address and timeouts.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig binds to localhost only.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server serves the monitor endpoints.
type Server struct {
	router    *mux.Router
	server    *http.Server
	decisions repository.DecisionRepository
	gateway   *resilience.Gateway
	metrics   *telemetry.Registry
	log       zerolog.Logger
}

// NewServer wires the routes and middleware. gateway may be nil, in which
// case /healthz reports a minimal payload; metrics may be nil, in which
// case the /metrics route is not registered.
func NewServer(cfg ServerConfig, decisions repository.DecisionRepository, gateway *resilience.Gateway, metrics *telemetry.Registry, log zerolog.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		decisions: decisions,
		gateway:   gateway,
		metrics:   metrics,
		log:       log,
	}
	s.routes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/decision/latest", s.handleLatestDecision).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("monitor server listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		requestID, _ := r.Context().Value(requestIDKey).(string)
		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

type healthResponse struct {
	Status  string                    `json:"status"`
	Sources map[string]sourceHealth   `json:"sources,omitempty"`
	Time    time.Time                 `json:"time"`
}

type sourceHealth struct {
	State   string `json:"state"`
	Healthy bool   `json:"healthy"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Time: time.Now().UTC()}

	if s.gateway != nil {
		manager, healthy := s.gateway.Health()
		if !healthy {
			resp.Status = "degraded"
		}
		resp.Sources = map[string]sourceHealth{}
		for name, stats := range manager.Stats() {
			resp.Sources[name] = sourceHealth{State: stats.State.String(), Healthy: stats.IsHealthy()}
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) handleLatestDecision(w http.ResponseWriter, r *http.Request) {
	decision, ok, err := s.decisions.Latest(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "decision lookup failed"})
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no decision emitted yet"})
		return
	}
	s.writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "path": r.URL.Path})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn().Err(err).Msg("response encode failed")
	}
}
