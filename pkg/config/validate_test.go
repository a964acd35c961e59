package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate_DefaultsAreValid(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "batch size zero",
			mutate: func(c *Config) { c.Retention.BatchSize = 0 },
			field:  "retention.batch_size",
		},
		{
			name:   "batch size above limit",
			mutate: func(c *Config) { c.Retention.BatchSize = MaxBatchSize + 1 },
			field:  "retention.batch_size",
		},
		{
			name:   "negative application retention",
			mutate: func(c *Config) { c.Retention.DaysBeforeDeletion = -1 },
			field:  "retention.days_before_deletion",
		},
		{
			name:   "zero account retention",
			mutate: func(c *Config) { c.Retention.InactiveDaysBeforeDeletion = 0 },
			field:  "retention.inactive_days_before_deletion",
		},
		{
			name:   "zero runtime budget",
			mutate: func(c *Config) { c.Retention.MaxRuntimeMinutes = 0 },
			field:  "retention.max_runtime_minutes",
		},
		{
			name:   "warning window equals application retention",
			mutate: func(c *Config) { c.Retention.WarningWindowDays = c.Retention.DaysBeforeDeletion },
			field:  "retention.warning_window_days",
		},
		{
			name: "warning window exceeds account retention",
			mutate: func(c *Config) {
				c.Retention.InactiveDaysBeforeDeletion = 20
			},
			field: "retention.warning_window_days",
		},
		{
			name:   "sentinel is not a uuid",
			mutate: func(c *Config) { c.Retention.DeletedUserSentinelID = "deleted-user" },
			field:  "retention.deleted_user_sentinel_id",
		},
		{
			name:   "bad applications schedule",
			mutate: func(c *Config) { c.Retention.Schedules.Applications = "every night" },
			field:  "retention.schedules.applications",
		},
		{
			name:   "six field schedule",
			mutate: func(c *Config) { c.Retention.Schedules.Accounts = "0 30 3 * * *" },
			field:  "retention.schedules.accounts",
		},
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "mongodb" },
			field:  "storage.backend",
		},
		{
			name: "postgres without host",
			mutate: func(c *Config) {
				c.Storage.Backend = "postgres"
				c.Storage.Postgres.Database = "jobboard"
			},
			field: "storage.postgres.host",
		},
		{
			name: "postgres bad ssl mode",
			mutate: func(c *Config) {
				c.Storage.Backend = "postgres"
				c.Storage.Postgres.Host = "db"
				c.Storage.Postgres.Database = "jobboard"
				c.Storage.Postgres.SSLMode = "sometimes"
			},
			field: "storage.postgres.ssl_mode",
		},
		{
			name:   "unknown transport",
			mutate: func(c *Config) { c.Notification.Transport = "pigeon" },
			field:  "notification.transport",
		},
		{
			name:   "smtp without host",
			mutate: func(c *Config) { c.Notification.Transport = "smtp" },
			field:  "notification.smtp.host",
		},
		{
			name: "amqp with http url",
			mutate: func(c *Config) {
				c.Notification.Transport = "amqp"
				c.Notification.AMQP.URL = "http://broker:5672"
			},
			field: "notification.amqp.url",
		},
		{
			name:   "bad default language",
			mutate: func(c *Config) { c.Notification.DefaultLanguage = "not a tag!" },
			field:  "notification.default_language",
		},
		{
			name:   "bad listen address",
			mutate: func(c *Config) { c.Admin.ListenAddress = "localhost" },
			field:  "admin.listen_address",
		},
		{
			name:   "short admin token",
			mutate: func(c *Config) { c.Admin.Tokens = []AdminToken{{Name: "ops", Token: "short"}} },
			field:  "admin.tokens[0].token",
		},
		{
			name:   "unnamed admin token",
			mutate: func(c *Config) { c.Admin.Tokens = []AdminToken{{Token: "0123456789abcdef"}} },
			field:  "admin.tokens[0].name",
		},
		{
			name: "duplicate admin token name",
			mutate: func(c *Config) {
				c.Admin.Tokens = []AdminToken{
					{Name: "ops", Token: "0123456789abcdef"},
					{Name: "ops", Token: "fedcba9876543210"},
				}
			},
			field: "admin.tokens[1].name",
		},
		{
			name:   "tls without certificate",
			mutate: func(c *Config) { c.Admin.TLS.Enabled = true },
			field:  "admin.tls",
		},
		{
			name: "tls version too old",
			mutate: func(c *Config) {
				c.Admin.TLS = AdminTLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem", MinVersion: "1.0"}
			},
			field: "admin.tls.min_version",
		},
		{
			name:   "bad evidence backend",
			mutate: func(c *Config) { c.Evidence.Backend = "postgres" },
			field:  "evidence.backend",
		},
		{
			name:   "bad evidence prune schedule",
			mutate: func(c *Config) { c.Evidence.PruneSchedule = "daily" },
			field:  "evidence.prune_schedule",
		},
		{
			name:   "negative evidence max records",
			mutate: func(c *Config) { c.Evidence.MaxRecords = -1 },
			field:  "evidence.max_records",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			field:  "telemetry.logging.level",
		},
		{
			name: "bad redact pattern",
			mutate: func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "x", Pattern: "([a-z"}}
			},
			field: "telemetry.logging.redact_patterns[0].pattern",
		},
		{
			name:   "tracing without endpoint",
			mutate: func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			field:  "telemetry.tracing.endpoint",
		},
		{
			name:   "sample ratio above one",
			mutate: func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			field:  "telemetry.tracing.sample_ratio",
		},
		{
			name:   "decreasing buckets",
			mutate: func(c *Config) { c.Telemetry.Metrics.DurationBuckets = []float64{5, 1} },
			field:  "telemetry.metrics.duration_buckets",
		},
		{
			name:   "health check timeout too long",
			mutate: func(c *Config) { c.Telemetry.Health.CheckTimeout = 2 * time.Minute },
			field:  "telemetry.health.check_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewTestConfig().Build()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !verr.HasField(tt.field) {
				t.Errorf("expected error on %q, got %v", tt.field, err)
			}
		})
	}
}

func TestValidate_SecretReferenceTokenDeferred(t *testing.T) {
	cfg := NewTestConfig().Build()
	cfg.Admin.Tokens = []AdminToken{{Name: "ops", Token: "${secret:ops}"}}
	if err := Validate(cfg); err != nil {
		t.Errorf("unresolved reference should pass validation, got %v", err)
	}
}

func TestValidate_ValidBackends(t *testing.T) {
	for _, backend := range []string{"memory", "sqlite", "sqlite-pure"} {
		cfg := NewTestConfig().Build()
		cfg.Storage.Backend = backend
		if err := Validate(cfg); err != nil {
			t.Errorf("backend %q: unexpected error %v", backend, err)
		}
	}

	cfg := NewTestConfig().Build()
	cfg.Storage.Backend = "postgres"
	cfg.Storage.Postgres.Host = "db.internal"
	cfg.Storage.Postgres.Database = "jobboard"
	if err := Validate(cfg); err != nil {
		t.Errorf("postgres: unexpected error %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := NewTestConfig().Build()
	cfg.Retention.BatchSize = 0
	cfg.Retention.DeletedUserSentinelID = "x"
	cfg.Telemetry.Logging.Format = "xml"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 errors, got %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(err.Error(), "with 3 errors") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  ValidationError
		want string
	}{
		{"empty", ValidationError{}, "configuration validation failed"},
		{
			"single",
			ValidationError{Errors: []FieldError{{Field: "retention.batch_size", Message: "must be between 1 and 10000"}}},
			"configuration validation failed: retention.batch_size: must be between 1 and 10000",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
