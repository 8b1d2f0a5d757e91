// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/morales-javx/javxseek/internal/config"
	"github.com/morales-javx/javxseek/internal/session"
	"github.com/morales-javx/javxseek/internal/telemetry"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize bounds JSON request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength bounds one user message, in runes.
	MaxMessageLength = 100000

	// ShutdownTimeout is how long in-flight requests get on shutdown.
	ShutdownTimeout = 10 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Config   config.ServerConfig
	Registry *session.Registry
	Recorder *telemetry.Recorder

	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	Logger  *zap.Logger
	Version string

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// Server is the web presentation: an SSE chat stream plus session control
// endpoints over a session.Registry.
type Server struct {
	cfg      config.ServerConfig
	registry *session.Registry
	rec      *telemetry.Recorder
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	version  string
	now      func() time.Time

	ips     *IPResolver
	limiter *RateLimiter
	mux     *http.ServeMux
	handler http.Handler
}

// New creates a Server and builds its routes and middleware.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("server: registry is required")
	}
	ips, err := NewIPResolver(opts.Config.TrustedProxies)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      opts.Config,
		registry: opts.Registry,
		rec:      opts.Recorder,
		gatherer: opts.Gatherer,
		logger:   opts.Logger,
		version:  opts.Version,
		now:      opts.Now,
		ips:      ips,
		limiter:  NewRateLimiter(opts.Config.RateLimit, opts.Config.RateBurst),
		mux:      http.NewServeMux(),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.version == "" {
		s.version = "dev"
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		s.cfg.AllowedOrigins = []string{"*"}
	}

	s.setupRoutes()
	s.handler = Chain(
		RecoveryMiddleware(s.logger),
		LoggingMiddleware(s.logger, s.ips),
		SecurityHeadersMiddleware(),
		CORSMiddleware(DefaultCORSConfig(s.cfg.AllowedOrigins)),
		RateLimitMiddleware(s.limiter, s.ips),
	)(s.mux)
	return s, nil
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	s.mux.HandleFunc("POST /api/session/reset", s.handleReset)
	s.mux.HandleFunc("GET /api/session/style", s.handleStyle)
	s.mux.HandleFunc("GET /api/session/memory", s.handleMemory)
	s.mux.HandleFunc("POST /api/session/model", s.handleRotateModel)
	s.mux.HandleFunc("POST /api/session/mode", s.handleMode)

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.cfg.StaticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln alongside the registry sweeper. When ctx is done the
// server drains in-flight requests for up to ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: chat streams run as long as the upstream does.
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server started",
			zap.String("addr", ln.Addr().String()),
			zap.String("version", s.version))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return s.registry.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error": message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
