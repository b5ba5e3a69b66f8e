// Package server implements the draftcue HTTP API server.
package server

import (
	"context"
	"expvar"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/draftcue/draftcue/internal/scheduler"
	"github.com/draftcue/draftcue/internal/store"
	"github.com/draftcue/draftcue/pkg/types"
)

// Server is the draftcue HTTP API server.
type Server struct {
	store  store.Store
	sched  *scheduler.Scheduler
	router chi.Router
	addr   string
	srv    *http.Server
	logger *slog.Logger
}

// New creates a new HTTP server.
func New(cfg types.ServerConfig, st store.Store, sched *scheduler.Scheduler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:  st,
		sched:  sched,
		addr:   cfg.Addr,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(limitBody(1 << 20))
	r.Use(apiKeyAuth(cfg.APIKey))
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Method(http.MethodGet, "/debug/vars", expvar.Handler())

	s.router = r
	s.registerRoutes(r)
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving HTTP requests and blocks until shutdown.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.logger.Info("http server listening", "addr", s.addr)
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}
