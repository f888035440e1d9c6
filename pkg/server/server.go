package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"driftline/warden/pkg/cache"
	"driftline/warden/pkg/config"
	"driftline/warden/pkg/governance"
	"driftline/warden/pkg/ledger"
	"driftline/warden/pkg/pricing"
	"driftline/warden/pkg/telemetry/metrics"
)

// Server is the HTTP wrapper around the governance core. It exposes the
// admission check, the request-completion hook, the cache endpoints, and
// the read-only status surface.
type Server struct {
	config     *config.ServerConfig
	controller *governance.Controller
	cache      *cache.Cache
	ledger     ledger.Ledger
	estimator  *pricing.Estimator
	collector   *metrics.Collector
	metricsPath string
	logger      *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// Options wires the server's collaborators. Collector may be nil, in
// which case no /metrics endpoint is mounted.
type Options struct {
	Config     *config.ServerConfig
	Controller *governance.Controller
	Cache      *cache.Cache
	Ledger     ledger.Ledger
	Estimator  *pricing.Estimator
	Collector  *metrics.Collector

	// MetricsPath is where the Prometheus handler mounts. Defaults to
	// "/metrics".
	MetricsPath string

	Logger *slog.Logger
}

// New creates the HTTP server.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &Server{
		config:      opts.Config,
		controller:  opts.Controller,
		cache:       opts.Cache,
		ledger:      opts.Ledger,
		estimator:   opts.Estimator,
		collector:   opts.Collector,
		metricsPath: metricsPath,
		logger:      logger,
	}
}

// Start runs the server and blocks until ctx is cancelled, a shutdown
// signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown",
			"timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// routes builds the mux and middleware chain.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/admission/check", s.handleAdmissionCheck)
	mux.HandleFunc("POST /v1/requests/complete", s.handleRequestComplete)
	mux.HandleFunc("POST /v1/cache/lookup", s.handleCacheLookup)
	mux.HandleFunc("POST /v1/cache/store", s.handleCacheStore)
	mux.HandleFunc("DELETE /v1/cache/{digest}", s.handleCacheInvalidate)
	mux.HandleFunc("GET /v1/status/{org}", s.handleStatus)
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	if s.collector != nil {
		mux.Handle("GET "+s.metricsPath, s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger, handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger, handler)

	return handler
}
