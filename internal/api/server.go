// Package api implements the operational HTTP surface from SPEC_FULL.md
// §2 item 16: liveness/readiness probes, Prometheus exposition, and a read-only
// introspection endpoint listing the active Configuration set and scheduler
// state. Grounded on the teacher's cmd/server/handlers (gorilla/mux routers
// returning JSON, one handler struct per concern) and pkg/metrics/endpoint.go
// for wiring promhttp.HandlerFor against a dedicated prometheus.Registry,
// trimmed to what this service's own observability needs actually require
// (no response caching or per-client rate limiting on the metrics endpoint
// the teacher's enterprise-grade variant adds).
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MihaiBojin/pyplyn/internal/model"
	"github.com/MihaiBojin/pyplyn/internal/scheduler"
)

// ConfigurationSource reports the Configuration set currently known to the
// process, for the introspection endpoint.
type ConfigurationSource interface {
	Current() []model.Configuration
}

// Server hosts the operational HTTP surface on its own listener, independent
// of the ETL engine's lifecycle.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Config controls Server construction.
type Config struct {
	ListenAddr string
	Registry   *prometheus.Registry
	Scheduler  *scheduler.Scheduler
	Configs    ConfigurationSource
	Logger     *slog.Logger
}

// New builds the router (/healthz, /readyz, /metrics, /debug/configurations)
// and wraps it in an *http.Server bound to cfg.ListenAddr.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/readyz", handleReadyz(cfg.Scheduler)).Methods(http.MethodGet)
	router.HandleFunc("/debug/configurations", handleConfigurations(cfg.Configs)).Methods(http.MethodGet)

	if cfg.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("operational HTTP surface listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server, waiting up to the context's deadline
// for in-flight requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready as long as the scheduler exists; a process with
// no scheduler wired yet (still starting) reports not ready.
func handleReadyz(sched *scheduler.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sched == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "scheduled_configurations": sched.Len()})
	}
}

// handleConfigurations lists the structural hash and repeat interval of
// every currently-scheduled Configuration, for operator debugging
// (SPEC_FULL.md §2 item 16, read-only introspection).
func handleConfigurations(source ConfigurationSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if source == nil {
			writeJSON(w, http.StatusOK, []string{})
			return
		}

		configs := source.Current()
		out := make([]map[string]any, 0, len(configs))
		for _, c := range configs {
			out = append(out, map[string]any{
				"id":                     c.String(),
				"repeat_interval_millis": c.RepeatIntervalMillis,
				"disabled":               c.Disabled,
				"version":                c.Version,
				"source":                 c.Source,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
