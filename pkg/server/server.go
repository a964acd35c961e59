// Package server provides the custodian admin HTTP server: health probes,
// Prometheus metrics, sweep status and manual sweep triggers.
//
// It binds to loopback by default. Status and sweep triggers require an
// operator token once admin.tokens is set; the listener serves HTTPS when
// admin.tls is enabled.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/sweep"
	"jobboard-hq/custodian/pkg/security/auth"
	admintls "jobboard-hq/custodian/pkg/security/tls"
	"jobboard-hq/custodian/pkg/telemetry/health"
)

// Sweeps runs sweeps and reports their last results. *sweep.Engine
// implements it.
type Sweeps interface {
	Run(ctx context.Context, name string, opts sweep.RunOptions) ([]*runner.Report, error)
	LastReports() map[string]*runner.Report
}

// Schedule describes the cron scheduler. *scheduler.Scheduler implements it.
type Schedule interface {
	IsRunning() bool
	NextRuns() map[string]time.Time
}

// Deps are the components the admin server exposes.
type Deps struct {
	Sweeps   Sweeps
	Schedule Schedule // optional
	Health   *health.Checker
	Metrics  http.Handler // nil when metrics are disabled
	Version  health.VersionInfo

	// Evidence serves GET /evidence; nil when the trail is disabled.
	Evidence evidence.Storage
}

// Server is the admin HTTP server.
type Server struct {
	config    *config.AdminConfig
	telemetry *config.TelemetryConfig
	deps      Deps
	auth      *auth.Middleware
	logger    *slog.Logger

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
}

// NewServer creates an admin server.
func NewServer(cfg *config.AdminConfig, telemetry *config.TelemetryConfig, deps Deps) *Server {
	tokens := make([]auth.Token, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens = append(tokens, auth.Token{Name: t.Name, Value: t.Token})
	}
	return &Server{
		config:    cfg,
		telemetry: telemetry,
		deps:      deps,
		auth:      auth.NewMiddleware(auth.NewTokenValidator(tokens)),
		logger:    slog.Default().With("component", "server"),
	}
}

// Start listens and serves until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	tlsConfig, _, err := admintls.ServerConfig(ctx, &s.config.TLS)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	s.addr = ln.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting admin server",
			"address", ln.Addr().String(),
			"tls", tlsConfig != nil,
			"auth", len(s.config.Tokens) > 0,
		)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server. Running manual sweeps are
// cancelled once the shutdown timeout expires.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("shutting down admin server", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			_ = s.httpServer.Close()
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("admin server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound address once the server is running.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}
