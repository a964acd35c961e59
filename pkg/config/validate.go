package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
)

// MaxBatchSize is the upper bound of retention.batch_size.
const MaxBatchSize = 10000

// MinAdminTokenLength is the shortest accepted operator token.
const MinAdminTokenLength = 16

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "retention.batch_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// HasField reports whether any error concerns the given field.
func (e ValidationError) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateRetention(&cfg.Retention)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateNotification(&cfg.Notification)...)
	errs = append(errs, validateAdmin(&cfg.Admin)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateEvidence(&cfg.Evidence)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateRetention validates the retention policy. The same rules guard
// every reload, so a bad edit never reaches a running sweep.
func validateRetention(cfg *RetentionConfig) []FieldError {
	var errs []FieldError

	if cfg.DaysBeforeDeletion <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.days_before_deletion",
			Message: "must be positive",
		})
	}
	if cfg.InactiveDaysBeforeDeletion <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.inactive_days_before_deletion",
			Message: "must be positive",
		})
	}
	if cfg.BatchSize < 1 || cfg.BatchSize > MaxBatchSize {
		errs = append(errs, FieldError{
			Field:   "retention.batch_size",
			Message: fmt.Sprintf("must be between 1 and %d", MaxBatchSize),
		})
	}
	if cfg.MaxRuntimeMinutes <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.max_runtime_minutes",
			Message: "must be positive",
		})
	}

	if cfg.WarningWindowDays <= 0 {
		errs = append(errs, FieldError{
			Field:   "retention.warning_window_days",
			Message: "must be positive",
		})
	} else if cfg.WarningWindowDays >= cfg.DaysBeforeDeletion || cfg.WarningWindowDays >= cfg.InactiveDaysBeforeDeletion {
		errs = append(errs, FieldError{
			Field:   "retention.warning_window_days",
			Message: "must be smaller than both retention periods",
		})
	}

	if _, err := uuid.Parse(cfg.DeletedUserSentinelID); err != nil {
		errs = append(errs, FieldError{
			Field:   "retention.deleted_user_sentinel_id",
			Message: fmt.Sprintf("invalid UUID %q", cfg.DeletedUserSentinelID),
		})
	}

	schedules := []struct {
		field, expr string
	}{
		{"retention.schedules.applications", cfg.Schedules.Applications},
		{"retention.schedules.accounts", cfg.Schedules.Accounts},
		{"retention.schedules.warnings", cfg.Schedules.Warnings},
	}
	for _, s := range schedules {
		if _, err := cron.ParseStandard(s.expr); err != nil {
			errs = append(errs, FieldError{
				Field:   s.field,
				Message: fmt.Sprintf("invalid cron expression %q: %v", s.expr, err),
			})
		}
	}

	return errs
}

// validateStorage validates the storage backend configuration.
func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite", "sqlite-pure":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.path",
				Message: "path is required for the sqlite backends",
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.max_open_conns",
				Message: "must be non-negative",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "storage.sqlite.busy_timeout",
				Message: "must be non-negative",
			})
		}
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.host",
				Message: "host is required for the postgres backend",
			})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.database",
				Message: "database is required for the postgres backend",
			})
		}
		if cfg.Postgres.Port <= 0 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.port",
				Message: "port must be between 1 and 65535",
			})
		}
		validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
		if !validSSL[cfg.Postgres.SSLMode] {
			errs = append(errs, FieldError{
				Field:   "storage.postgres.ssl_mode",
				Message: fmt.Sprintf("invalid ssl mode %q: must be 'disable', 'require', 'verify-ca', or 'verify-full'", cfg.Postgres.SSLMode),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "storage.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', 'sqlite-pure', or 'postgres'", cfg.Backend),
		})
	}

	return errs
}

// validateEvidence validates the evidence trail. Settings are checked even
// while recording is disabled so enabling it later cannot fail at startup.
func validateEvidence(cfg *EvidenceConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{Field: "evidence.sqlite.path", Message: "path is required for the sqlite backend"})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "evidence.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite' or 'memory'", cfg.Backend),
		})
	}
	if cfg.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "evidence.async_buffer", Message: "must be non-negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "evidence.write_timeout", Message: "must be non-negative"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "evidence.retention_days", Message: "must be positive"})
	}
	if cfg.MaxRecords < 0 {
		errs = append(errs, FieldError{Field: "evidence.max_records", Message: "must be non-negative"})
	}
	if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "evidence.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.PruneSchedule, err),
		})
	}

	return errs
}

// validateNotification validates notification delivery.
func validateNotification(cfg *NotificationConfig) []FieldError {
	var errs []FieldError

	if _, err := language.Parse(cfg.DefaultLanguage); err != nil {
		errs = append(errs, FieldError{
			Field:   "notification.default_language",
			Message: fmt.Sprintf("invalid language tag %q", cfg.DefaultLanguage),
		})
	}
	if cfg.QueueSize <= 0 {
		errs = append(errs, FieldError{
			Field:   "notification.queue_size",
			Message: "must be positive",
		})
	}
	if cfg.Workers <= 0 {
		errs = append(errs, FieldError{
			Field:   "notification.workers",
			Message: "must be positive",
		})
	}

	switch cfg.Transport {
	case "log":
	case "smtp":
		if cfg.SMTP.Host == "" {
			errs = append(errs, FieldError{
				Field:   "notification.smtp.host",
				Message: "host is required for the smtp transport",
			})
		}
		if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "notification.smtp.port",
				Message: "port must be between 1 and 65535",
			})
		}
		if !strings.Contains(cfg.From, "@") {
			errs = append(errs, FieldError{
				Field:   "notification.from",
				Message: fmt.Sprintf("invalid sender address %q", cfg.From),
			})
		}
	case "amqp":
		u, err := url.Parse(cfg.AMQP.URL)
		if cfg.AMQP.URL == "" || err != nil || (u.Scheme != "amqp" && u.Scheme != "amqps") {
			errs = append(errs, FieldError{
				Field:   "notification.amqp.url",
				Message: "url must be an amqp:// or amqps:// URL",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "notification.transport",
			Message: fmt.Sprintf("invalid transport %q: must be 'log', 'smtp', or 'amqp'", cfg.Transport),
		})
	}

	return errs
}

// validateAdmin validates the admin server configuration.
func validateAdmin(cfg *AdminConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled {
		if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "admin.listen_address",
				Message: fmt.Sprintf("invalid listen address %q", cfg.ListenAddress),
			})
		}
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "admin.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "admin.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "admin.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	names := make(map[string]bool, len(cfg.Tokens))
	for i, tok := range cfg.Tokens {
		field := fmt.Sprintf("admin.tokens[%d]", i)
		if tok.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "token name is required"})
		} else if names[tok.Name] {
			errs = append(errs, FieldError{Field: field + ".name", Message: fmt.Sprintf("duplicate token name %q", tok.Name)})
		}
		names[tok.Name] = true
		// References are checked once resolved.
		if !strings.Contains(tok.Token, "${secret:") && len(tok.Token) < MinAdminTokenLength {
			errs = append(errs, FieldError{
				Field:   field + ".token",
				Message: fmt.Sprintf("token must be at least %d characters", MinAdminTokenLength),
			})
		}
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "admin.tls",
				Message: "cert_file and key_file are required when TLS is enabled",
			})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "admin.tls.min_version",
				Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
			})
		}
		if cfg.TLS.ReloadInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "admin.tls.reload_interval",
				Message: "reload interval must be positive",
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	// Validate metrics path
	if cfg.Metrics.Enabled && (cfg.Metrics.Path == "" || cfg.Metrics.Path[0] != '/') {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with / when metrics are enabled",
		})
	}
	for i := 1; i < len(cfg.Metrics.DurationBuckets); i++ {
		if cfg.Metrics.DurationBuckets[i] <= cfg.Metrics.DurationBuckets[i-1] {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.duration_buckets",
				Message: "buckets must be strictly increasing",
			})
			break
		}
	}

	// Validate tracing configuration
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	// Validate health check configuration
	if cfg.Health.Enabled {
		paths := []struct{ field, path string }{
			{"telemetry.health.liveness_path", cfg.Health.LivenessPath},
			{"telemetry.health.readiness_path", cfg.Health.ReadinessPath},
			{"telemetry.health.version_path", cfg.Health.VersionPath},
		}
		for _, p := range paths {
			if p.path == "" || p.path[0] != '/' {
				errs = append(errs, FieldError{
					Field:   p.field,
					Message: "path must start with / when health checks are enabled",
				})
			}
		}

		if cfg.Health.CheckTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout must be positive",
			})
		}
		if cfg.Health.CheckTimeout > 60*time.Second {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout exceeds reasonable limit (60s)",
			})
		}
	}

	return errs
}
