package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/triagelink/wait-data-etl/internal/domain"
	"github.com/triagelink/wait-data-etl/internal/refdata"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and reference-data endpoints.
type Server struct {
	httpServer *http.Server
	resolver   *refdata.Resolver
	triage     *refdata.TriageIndex
	logger     *slog.Logger
}

// NewServer creates the admin HTTP server. The reference tables are loaded
// once at startup and immutable, so the hospital routes serve directly from
// the resolver without locking.
func NewServer(addr string, ready ReadinessChecker, resolver *refdata.Resolver, triage *refdata.TriageIndex, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		resolver: resolver,
		triage:   triage,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /refdata", s.handleRefData)
	mux.HandleFunc("GET /hospitals", s.handleHospitals)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleRefData summarizes the loaded reference tables so operators can
// confirm a deploy picked up the intended table versions.
func (s *Server) handleRefData(w http.ResponseWriter, _ *http.Request) {
	regions := make([]string, 0, len(domain.Regions()))
	for _, r := range domain.Regions() {
		regions = append(regions, string(r))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"hospitals":               s.resolver.Len(),
		"triage_destination_hubs": s.triage.Len(),
		"regions":                 regions,
	})
}

func (s *Server) handleHospitals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.resolver.Identities())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
