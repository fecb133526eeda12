// Package debug serves diagnostics over HTTP: Prometheus metrics and a JSON
// snapshot of the running session.
package debug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nuclight.org/tgweb/app/shell"
	"nuclight.org/tgweb/pkg/logger"
)

const (
	stateTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// StateSource is a session that can report its state.
type StateSource interface {
	Snapshot(ctx context.Context) (shell.State, error)
}

type Server struct {
	log      logger.Logger
	gatherer prometheus.Gatherer

	mu     sync.RWMutex
	source StateSource
}

func New(log logger.Logger, gatherer prometheus.Gatherer) *Server {
	return &Server{
		log:      log.With("component", "debug"),
		gatherer: gatherer,
	}
}

// SetSource switches /state to the current session. nil reports 503.
func (s *Server) SetSource(src StateSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/state", s.handleState)

	return r
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	src := s.source
	s.mu.RUnlock()

	if src == nil {
		http.Error(w, "no session", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), stateTimeout)
	defer cancel()

	st, err := src.Snapshot(ctx)
	if err != nil {
		s.log.Warn("reading session state", "error", err)
		http.Error(w, "session busy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.log.Warn("writing session state", "error", err)
	}
}

// ListenAndServe serves on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutting down debug server", "error", err)
		}
	}()

	s.log.Info("debug server started", "addr", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving debug http: %w", err)
	}

	return nil
}
