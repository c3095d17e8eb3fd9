package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/maegy2011/FMS-sub000/internal/app"
	"github.com/maegy2011/FMS-sub000/internal/config"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/middleware"
	"github.com/maegy2011/FMS-sub000/pkg/logger"
)

// GateDeps are the services the request gate needs. Every request
// passes through the gate before routing.
type GateDeps struct {
	Events    *app.SecurityEventService
	Detector  *app.SuspicionDetector
	RateLimit *app.RateLimiter
}

// Server represents the HTTP server.
type Server struct {
	httpServer   *http.Server
	router       Router
	config       *config.Config
	logger       *logger.Logger
	cleanupFuncs []func() // cleanup functions to call on shutdown
}

// ServerOption is a function that configures the server.
type ServerOption func(*Server)

// WithRouter sets a custom router implementation.
func WithRouter(r Router) ServerOption {
	return func(s *Server) {
		s.router = r
	}
}

// WithCleanup registers a function to run during shutdown.
func WithCleanup(fn func()) ServerOption {
	return func(s *Server) {
		s.cleanupFuncs = append(s.cleanupFuncs, fn)
	}
}

// NewServer creates a new HTTP server with the gate installed.
// By default it uses the Chi router. Use WithRouter option to change.
func NewServer(cfg *config.Config, log *logger.Logger, gate GateDeps, opts ...ServerOption) *Server {
	s := &Server{
		config: cfg,
		logger: log,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.router == nil {
		s.router = NewChiRouter()
	}

	// Gate order matters: headers are set before any rejection stage
	// so denied requests carry them too, and the cheap checks run
	// before the ones that touch a store.
	gateMiddleware := []Middleware{
		middleware.Recovery(log, gate.Events, cfg.IsProduction()),
		middleware.RequestID(),
		middleware.SecurityHeaders(),
	}
	if cfg.Suspicion.Enabled {
		gateMiddleware = append(gateMiddleware, middleware.SuspicionGuard(gate.Detector, gate.Events))
	}
	if cfg.RateLimit.Enabled {
		gateMiddleware = append(gateMiddleware, middleware.RateLimit(gate.RateLimit, gate.Events))
	}
	gateMiddleware = append(gateMiddleware,
		middleware.MethodAllowList(gate.Events),
		middleware.ContentTypeCheck(gate.Events),
		middleware.BodyLimit(cfg.Server.MaxBodySize, gate.Events),
		middleware.RequiredHeaders(gate.Events),
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Metrics(),
		middleware.Logger(log),
	)
	s.router.Use(gateMiddleware...)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	return s
}

// Router returns the router for registering handlers.
func (s *Server) Router() Router {
	return s.router
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *logger.Logger {
	return s.logger
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.config.Server.Addr())

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	for _, cleanup := range s.cleanupFuncs {
		cleanup()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
