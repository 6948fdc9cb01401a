// Package server exposes an engine over HTTP.
//
// Routes (all JSON unless noted):
//
//	GET    /api/health                 liveness and session id
//	GET    /api/version                build information
//	GET    /api/stats                  graph and simulation summary
//	GET    /api/graph                  merged topology in wire format
//	GET    /api/frame                  current layout frame
//	GET    /api/graph.svg              frame rendered by Graphviz (image/svg+xml)
//	GET    /api/controllers            registered controllers
//	POST   /api/controllers            connect {url, interval}
//	DELETE /api/controllers?url=       disconnect
//	POST   /api/controllers/retry      retry {url}
//	POST   /api/controllers/probe      health probe {url}, nothing is registered
//	GET    /api/notifications          recent notifications
//	GET    /api/params, PUT            force parameters
//	GET    /api/filter, PUT            visibility filter
//	POST   /api/reset                  default params and filter
//	POST   /api/drag                   {id, phase: start|move|end, x, y}
//	POST   /api/unpin                  {id}
//	PUT    /api/transform              {x, y, k}
//	POST   /api/transform/zoom         {factor, cx, cy}
//	POST   /api/transform/pan          {dx, dy}
//	GET    /api/events                 server-sent events: frame, notification
//	GET    /metrics                    Prometheus, when a registry is set
//
// Errors are returned as {"error": CODE, "message": "..."} with a status
// derived from the error code.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/4ry1337/openvis/pkg/engine"
	"github.com/4ry1337/openvis/pkg/metrics"
)

// Server defaults.
const (
	DefaultHeartbeat       = 15 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Server serves the HTTP API for one engine.
type Server struct {
	engine    *engine.Engine
	metrics   *metrics.Registry
	log       *log.Logger
	validate  *validator.Validate
	heartbeat time.Duration
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics in reg and serves it on /metrics.
func WithMetrics(reg *metrics.Registry) Option { return func(s *Server) { s.metrics = reg } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.log = l } }

// WithHeartbeat sets how often idle event streams get a keep-alive comment.
func WithHeartbeat(d time.Duration) Option { return func(s *Server) { s.heartbeat = d } }

// New creates a server for e.
func New(e *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    e,
		log:       log.Default(),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		heartbeat: DefaultHeartbeat,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if s.metrics != nil {
		r.Use(s.recordMetrics)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/version", s.handleVersion)
		r.Get("/stats", s.handleStats)
		r.Get("/graph", s.handleGraph)
		r.Get("/graph.svg", s.handleGraphSVG)
		r.Get("/frame", s.handleFrame)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/events", s.handleEvents)

		r.Route("/controllers", func(r chi.Router) {
			r.Get("/", s.handleListControllers)
			r.Post("/", s.handleConnect)
			r.Delete("/", s.handleDisconnect)
			r.Post("/retry", s.handleRetry)
			r.Post("/probe", s.handleProbe)
		})

		r.Get("/params", s.handleGetParams)
		r.Put("/params", s.handleSetParams)
		r.Get("/filter", s.handleGetFilter)
		r.Put("/filter", s.handleSetFilter)
		r.Post("/reset", s.handleReset)

		r.Post("/drag", s.handleDrag)
		r.Post("/unpin", s.handleUnpin)
		r.Put("/transform", s.handleSetTransform)
		r.Post("/transform/zoom", s.handleZoom)
		r.Post("/transform/pan", s.handlePan)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. Open event streams end when ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
