package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Readiness reports whether the cache and storage are provisioned
type Readiness interface {
	CacheReady() bool
	StorageReady() bool
}

// Server exposes /metrics and /healthz over HTTP
type Server struct {
	srv *http.Server
}

// NewServer builds the router. ready may be nil, in which case /healthz always reports ok.
func NewServer(addr string, m *Metrics, ready Readiness) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	if reg := m.Registry(); reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	r.Get("/healthz", healthHandler(ready))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the HTTP handler (used by tests)
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves in the background; listener errors are passed to onErr
func (s *Server) Start(onErr func(error)) {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			onErr(err)
		}
	}()
}

// Close shuts the server down, waiting at most a few seconds for in-flight scrapes
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func healthHandler(ready Readiness) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := map[string]bool{"cache": true, "storage": true}
		if ready != nil {
			status["cache"] = ready.CacheReady()
			status["storage"] = ready.StorageReady()
		}

		code := http.StatusOK
		if !status["cache"] || !status["storage"] {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
