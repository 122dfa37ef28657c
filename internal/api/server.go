// Package api exposes the market over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rep-protocol/internal/logger"
	"rep-protocol/internal/market"
	"rep-protocol/internal/observability"
)

// DefaultShutdownTimeout is the maximum time to wait for graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// Config configures the HTTP server.
type Config struct {
	Addr            string
	RateLimitRPS    float64 // <= 0 disables rate limiting
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// Server is the HTTP API of a market.
type Server struct {
	cfg     Config
	market  *market.Market
	stream  http.Handler
	router  *gin.Engine
	limiter *RateLimiter
	log     *logger.Logger
	metrics *observability.Metrics
}

// NewServer builds the router. stream serves /v1/events/ws and may be nil.
func NewServer(m *market.Market, stream http.Handler, cfg Config, log *logger.Logger, metrics *observability.Metrics) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		cfg:     cfg,
		market:  m,
		stream:  stream,
		router:  gin.New(),
		log:     log.With("component", "api"),
		metrics: metrics,
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, s.log, metrics)
	}

	s.router.Use(gin.Recovery(), corsMiddleware(), s.observe())
	if s.limiter != nil {
		s.router.Use(s.limiter.Middleware())
	}
	s.routes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.RunCleanup(ctx, time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", "address", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.log.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}
