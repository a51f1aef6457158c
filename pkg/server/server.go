// Package server exposes the layout pipeline over HTTP.
//
// # Routes
//
//	GET    /healthz           liveness probe
//	POST   /v1/layout         lay out the request body and return the result
//	POST   /v1/layouts        lay out, store and return {id, layout}
//	GET    /v1/layouts        list stored layouts, newest first
//	GET    /v1/layouts/{id}   fetch a stored layout
//	DELETE /v1/layouts/{id}   delete a stored layout
//	GET    /v1/stats          pipeline, cache and request counters
//	GET    /metrics           the same counters for Prometheus
//
// Request bodies hold flowchart text or graph JSON. The layout routes
// accept the query parameters width, height, margin, direction, dummies
// and format (json or dot).
//
// Errors are JSON objects {"error": message, "code": code}. Input errors
// map to 400, unknown ids to 404, oversized bodies to 413 and rate limited
// requests to 429.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/matzehuels/stackflow/pkg/observability"
	"github.com/matzehuels/stackflow/pkg/pipeline"
	"github.com/matzehuels/stackflow/pkg/store"
)

// Defaults for [Config].
const (
	DefaultAddr           = ":8080"
	DefaultMaxBodyBytes   = 1 << 20
	DefaultRequestTimeout = 30 * time.Second
	DefaultListLimit      = 50
)

// Config holds server settings. Zero values select the defaults.
type Config struct {
	Addr           string
	MaxBodyBytes   int64
	RequestTimeout time.Duration

	// RateLimit is the sustained number of layout requests per second
	// across all clients. Zero disables limiting.
	RateLimit float64
	Burst     int

	// Counters, when set, is served at GET /v1/stats and GET /metrics.
	Counters *observability.Counters
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.RateLimit > 0 && c.Burst <= 0 {
		c.Burst = max(1, int(c.RateLimit))
	}
}

// Server is the HTTP API.
type Server struct {
	runner  *pipeline.Runner
	store   store.Store
	logger  *log.Logger
	cfg     Config
	limiter *rate.Limiter
	router  chi.Router
	srv     *http.Server
}

// New creates a server. A nil store selects an in-memory store and a nil
// logger selects the default logger.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger, cfg Config) *Server {
	cfg.setDefaults()
	if st == nil {
		st = store.NewMemoryStore()
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner: runner,
		store:  st,
		logger: logger,
		cfg:    cfg,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst)
	}
	s.router = s.routes()
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.With(s.rateLimit).Post("/layout", s.handleLayout)
		r.With(s.rateLimit).Post("/layouts", s.handleCreateLayout)
		r.Get("/layouts", s.handleListLayouts)
		r.Get("/layouts/{id}", s.handleGetLayout)
		r.Delete("/layouts/{id}", s.handleDeleteLayout)
		if s.cfg.Counters != nil {
			r.Get("/stats", s.handleStats)
		}
	})
	if s.cfg.Counters != nil {
		r.Handle("/metrics", s.cfg.Counters.Handler())
	}
	return r
}

// Handler returns the fully-wrapped http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", "addr", s.cfg.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server. The runner and store stay
// open; callers close them.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
