package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/telemetry/health"
	"jobboard-hq/custodian/pkg/telemetry/logging"
	"jobboard-hq/custodian/pkg/telemetry/metrics"
	"jobboard-hq/custodian/pkg/telemetry/tracing"
)

// Telemetry bundles the observability components built from one
// TelemetryConfig.
type Telemetry struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
	version health.VersionInfo
}

// Option adjusts Setup.
type Option func(*logging.Config)

// WithLogWriter sends logs to w instead of stdout.
func WithLogWriter(w io.Writer) Option {
	return func(c *logging.Config) { c.Writer = w }
}

// Setup installs the process logger and tracer provider and creates the
// metrics collector and health checker.
func Setup(cfg *config.TelemetryConfig, version health.VersionInfo, opts ...Option) (*Telemetry, error) {
	logCfg := logging.FromConfig(cfg.Logging)
	for _, opt := range opts {
		opt(&logCfg)
	}
	logger, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing, version.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	return &Telemetry{
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Metrics, nil),
		tracer:  tracer,
		health:  health.New(cfg.Health.CheckTimeout),
		version: version,
	}, nil
}

// Logger returns the process logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Metrics returns the metrics collector.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Version returns the build information.
func (t *Telemetry) Version() health.VersionInfo { return t.version }

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.tracer.Shutdown(ctx)
}
