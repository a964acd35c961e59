package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"jobboard-hq/custodian/pkg/cli"
	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/evidence/recorder"
	evidencestorage "jobboard-hq/custodian/pkg/evidence/storage"
	"jobboard-hq/custodian/pkg/notify"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/storage"
	"jobboard-hq/custodian/pkg/retention/sweep"
	"jobboard-hq/custodian/pkg/telemetry"
	"jobboard-hq/custodian/pkg/telemetry/health"
)

// app holds the components shared by the commands that touch the database.
type app struct {
	cfg       *config.Config
	telemetry *telemetry.Telemetry
	store     storage.SeedableStore
	transport notify.Transport
	sender    *notify.AsyncSender
	engine    *sweep.Engine

	// nil when evidence.enabled is false
	evidence evidence.Storage
	recorder *recorder.Recorder
}

type appOptions struct {
	// logWriter replaces stdout for logs, keeping stdout for command output.
	logWriter io.Writer

	// wrapRecorder decorates the metrics recorder handed to the engine.
	wrapRecorder func(runner.Recorder) runner.Recorder
}

// loadConfig initializes the global configuration from --config. A
// second command in the same process reloads it.
func loadConfig() (*config.Config, error) {
	load := config.Initialize
	if config.GetConfig() != nil {
		load = config.ReloadConfig
	}
	if err := load(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

func versionInfo() health.VersionInfo {
	return health.NewVersionInfo(Version, GitCommit, BuildDate)
}

// newApp sets up telemetry, opens storage and builds the sweep engine.
// The caller must call close.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	var telOpts []telemetry.Option
	if opts.logWriter != nil {
		telOpts = append(telOpts, telemetry.WithLogWriter(opts.logWriter))
	}
	tel, err := telemetry.Setup(&cfg.Telemetry, versionInfo(), telOpts...)
	if err != nil {
		return nil, cli.NewConfigError("telemetry", err.Error())
	}
	a := &app{cfg: cfg, telemetry: tel}

	a.store, err = storage.Open(ctx, storageConfig(&cfg.Storage))
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	if sqlStore, ok := a.store.(*storage.SQLStore); ok {
		if err := tel.Metrics().RegisterDB(cfg.Storage.Backend, sqlStore.DB().DB); err != nil {
			slog.Warn("failed to register database metrics", "error", err)
		}
	}

	a.transport, err = newTransport(&cfg.Notification)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("failed to create notification transport: %w", err)
	}
	a.sender = notify.NewAsyncSender(a.transport, notify.AsyncConfig{
		QueueSize: cfg.Notification.QueueSize,
		Workers:   cfg.Notification.Workers,
		Recorder:  tel.Metrics(),
	})
	if err := tel.Metrics().RegisterNotificationQueue(a.sender.Pending); err != nil {
		slog.Warn("failed to register notification queue metric", "error", err)
	}

	var journal runner.Journal
	if cfg.Evidence.Enabled {
		a.evidence, err = openEvidence(&cfg.Evidence)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("failed to open evidence storage: %w", err)
		}
		a.recorder = recorder.NewRecorder(a.evidence, &recorder.Config{
			AsyncBuffer:      cfg.Evidence.AsyncBuffer,
			WriteTimeout:     cfg.Evidence.WriteTimeout,
			HashKey:          cfg.Evidence.HashKey,
			IncludeUnchanged: cfg.Evidence.IncludeUnchanged,
		})
		journal = a.recorder
	}

	var rec runner.Recorder = tel.Metrics()
	if opts.wrapRecorder != nil {
		rec = opts.wrapRecorder(rec)
	}
	a.engine, err = sweep.New(sweep.Options{
		Store:           a.store,
		Sender:          a.sender,
		Policy:          sweep.ConfigSource{},
		Recorder:        rec,
		Journal:         journal,
		DefaultLanguage: cfg.Notification.DefaultLanguage,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

// close drains queued notifications and evidence, then releases storage
// and telemetry.
func (a *app) close(ctx context.Context) {
	if a.sender != nil {
		if err := a.sender.Close(ctx); err != nil {
			slog.Warn("notification queue not drained", "error", err)
		}
	} else if a.transport != nil {
		_ = a.transport.Close()
	}
	if a.recorder != nil {
		_ = a.recorder.Close()
		if n := a.recorder.Dropped(); n > 0 {
			slog.Warn("evidence records dropped", "count", n)
		}
	}
	if a.evidence != nil {
		if err := a.evidence.Close(); err != nil {
			slog.Warn("failed to close evidence storage", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("failed to close storage", "error", err)
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		slog.Warn("failed to flush traces", "error", err)
	}
}

func storageConfig(c *config.StorageConfig) *storage.Config {
	return &storage.Config{
		Backend: c.Backend,
		Migrate: c.Migrate,
		SQLite: storage.SQLiteConfig{
			Path:         c.SQLite.Path,
			MaxOpenConns: c.SQLite.MaxOpenConns,
			MaxIdleConns: c.SQLite.MaxIdleConns,
			WALMode:      c.SQLite.WALMode,
			BusyTimeout:  c.SQLite.BusyTimeout,
		},
		Postgres: storage.PostgresConfig{
			Host:            c.Postgres.Host,
			Port:            c.Postgres.Port,
			Database:        c.Postgres.Database,
			User:            c.Postgres.User,
			Password:        c.Postgres.Password,
			SSLMode:         c.Postgres.SSLMode,
			MaxOpenConns:    c.Postgres.MaxOpenConns,
			MaxIdleConns:    c.Postgres.MaxIdleConns,
			ConnMaxLifetime: c.Postgres.ConnMaxLifetime,
		},
	}
}

// openEvidence opens the evidence backend, creating the parent directory of
// a SQLite file.
func openEvidence(c *config.EvidenceConfig) (evidence.Storage, error) {
	if c.Backend == evidencestorage.BackendSQLite && c.SQLite.Path != "" {
		if err := os.MkdirAll(filepath.Dir(c.SQLite.Path), 0o750); err != nil {
			return nil, err
		}
	}
	return evidencestorage.Open(c)
}

func newTransport(c *config.NotificationConfig) (notify.Transport, error) {
	switch c.Transport {
	case "smtp":
		return notify.NewSMTPTransport(notify.SMTPConfig{
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.From,
			UseTLS:   c.SMTP.UseTLS,
			Timeout:  c.SMTP.Timeout,
		}), nil
	case "amqp":
		return notify.NewAMQPTransport(notify.AMQPConfig{
			URL:              c.AMQP.URL,
			Exchange:         c.AMQP.Exchange,
			RoutingKeyPrefix: c.AMQP.RoutingKeyPrefix,
		})
	case "log", "":
		return notify.NewLogTransport(), nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", c.Transport)
	}
}
