// Package server is the pipeline validation service.
//
// It answers the editor's submissions: POST /pipelines/parse takes a form
// field "pipeline" holding {nodes, edges} JSON and replies with the node
// count, the count of edges whose endpoints both exist, and whether those
// edges form a DAG. GET / is a liveness ping. Results are memoised in a
// [cache.Cache] keyed by the document's hash.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/pipewright/pkg/cache"
)

const (
	// ParsePath is the submission endpoint.
	ParsePath = "/pipelines/parse"
	// MetricsPath serves Prometheus metrics when metrics are enabled.
	MetricsPath = "/metrics"

	maxBodyBytes    = 4 << 20
	shutdownTimeout = 10 * time.Second
)

// Server serves the validation API.
type Server struct {
	origins  []string
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *Metrics
	logger   *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithOrigins sets the CORS allow-list.
func WithOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithCache memoises results in c for ttl. Zero ttl keeps entries forever.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		if c != nil {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

// WithMetrics records request metrics in m and serves them on MetricsPath.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server. Without options it allows no cross-origin callers
// and caches nothing.
func New(opts ...Option) *Server {
	s := &Server{cache: cache.NewNullCache(), logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger, s.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handlePing)
	r.Post(ParsePath, s.handleParse)
	if s.metrics != nil {
		r.Handle(MetricsPath, s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("validation service listening", "addr", addr, "origins", len(s.origins))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
