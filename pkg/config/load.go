package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"jobboard-hq/custodian/pkg/security/secrets"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "CUSTODIAN_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML configuration, applies defaults and validates it.
// Unknown keys are rejected so that typos in policy settings do not
// silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// io.EOF means an empty document: defaults only.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CUSTODIAN_SECTION_FIELD (e.g., CUSTODIAN_RETENTION_DRY_RUN).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Resolve ${secret:name} references
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := ResolveSecrets(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// ResolveSecrets replaces ${secret:name} references in credential fields.
// The secrets directory, when set, is consulted before the environment.
func ResolveSecrets(ctx context.Context, cfg *Config) error {
	var providers []secrets.Provider
	if cfg.Secrets.Dir != "" {
		fp, err := secrets.NewFileProvider(cfg.Secrets.Dir)
		if err != nil {
			return err
		}
		providers = append(providers, fp)
	}
	providers = append(providers, secrets.NewEnvProvider(cfg.Secrets.EnvPrefix))

	fields := map[string]*string{
		"storage.postgres.password":  &cfg.Storage.Postgres.Password,
		"notification.smtp.password": &cfg.Notification.SMTP.Password,
		"notification.amqp.url":      &cfg.Notification.AMQP.URL,
		"evidence.hash_key":          &cfg.Evidence.HashKey,
	}
	for i := range cfg.Admin.Tokens {
		fields[fmt.Sprintf("admin.tokens[%d].token", i)] = &cfg.Admin.Tokens[i].Token
	}

	return secrets.NewResolver(providers...).ResolveAll(ctx, fields)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Values that fail to parse are ignored and the file value is kept.
func applyEnvOverrides(cfg *Config) {
	// Retention overrides
	envBool("RETENTION_ENABLED", &cfg.Retention.Enabled)
	envBool("RETENTION_DRY_RUN", &cfg.Retention.DryRun)
	envInt("RETENTION_DAYS_BEFORE_DELETION", &cfg.Retention.DaysBeforeDeletion)
	envInt("RETENTION_INACTIVE_DAYS_BEFORE_DELETION", &cfg.Retention.InactiveDaysBeforeDeletion)
	envInt("RETENTION_BATCH_SIZE", &cfg.Retention.BatchSize)
	envInt("RETENTION_MAX_RUNTIME_MINUTES", &cfg.Retention.MaxRuntimeMinutes)
	envInt("RETENTION_WARNING_WINDOW_DAYS", &cfg.Retention.WarningWindowDays)
	envString("RETENTION_DELETED_USER_SENTINEL_ID", &cfg.Retention.DeletedUserSentinelID)
	envString("RETENTION_SCHEDULES_APPLICATIONS", &cfg.Retention.Schedules.Applications)
	envString("RETENTION_SCHEDULES_ACCOUNTS", &cfg.Retention.Schedules.Accounts)
	envString("RETENTION_SCHEDULES_WARNINGS", &cfg.Retention.Schedules.Warnings)

	// Storage overrides
	envString("STORAGE_BACKEND", &cfg.Storage.Backend)
	envBool("STORAGE_MIGRATE", &cfg.Storage.Migrate)
	envString("STORAGE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envString("STORAGE_POSTGRES_HOST", &cfg.Storage.Postgres.Host)
	envInt("STORAGE_POSTGRES_PORT", &cfg.Storage.Postgres.Port)
	envString("STORAGE_POSTGRES_DATABASE", &cfg.Storage.Postgres.Database)
	envString("STORAGE_POSTGRES_USER", &cfg.Storage.Postgres.User)
	envString("STORAGE_POSTGRES_PASSWORD", &cfg.Storage.Postgres.Password)
	envString("STORAGE_POSTGRES_SSL_MODE", &cfg.Storage.Postgres.SSLMode)

	// Notification overrides
	envString("NOTIFICATION_TRANSPORT", &cfg.Notification.Transport)
	envString("NOTIFICATION_FROM", &cfg.Notification.From)
	envString("NOTIFICATION_DEFAULT_LANGUAGE", &cfg.Notification.DefaultLanguage)
	envString("NOTIFICATION_SMTP_HOST", &cfg.Notification.SMTP.Host)
	envInt("NOTIFICATION_SMTP_PORT", &cfg.Notification.SMTP.Port)
	envString("NOTIFICATION_SMTP_USERNAME", &cfg.Notification.SMTP.Username)
	envString("NOTIFICATION_SMTP_PASSWORD", &cfg.Notification.SMTP.Password)
	envBool("NOTIFICATION_SMTP_USE_TLS", &cfg.Notification.SMTP.UseTLS)
	envString("NOTIFICATION_AMQP_URL", &cfg.Notification.AMQP.URL)
	envString("NOTIFICATION_AMQP_EXCHANGE", &cfg.Notification.AMQP.Exchange)

	// Admin overrides
	envBool("ADMIN_ENABLED", &cfg.Admin.Enabled)
	envString("ADMIN_LISTEN_ADDRESS", &cfg.Admin.ListenAddress)
	envDuration("ADMIN_READ_TIMEOUT", &cfg.Admin.ReadTimeout)
	envDuration("ADMIN_WRITE_TIMEOUT", &cfg.Admin.WriteTimeout)

	// Evidence overrides
	envBool("EVIDENCE_ENABLED", &cfg.Evidence.Enabled)
	envString("EVIDENCE_BACKEND", &cfg.Evidence.Backend)
	envString("EVIDENCE_SQLITE_PATH", &cfg.Evidence.SQLite.Path)
	envString("EVIDENCE_HASH_KEY", &cfg.Evidence.HashKey)
	envInt("EVIDENCE_RETENTION_DAYS", &cfg.Evidence.RetentionDays)
	envString("EVIDENCE_PRUNE_SCHEDULE", &cfg.Evidence.PruneSchedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_OTLP_INSECURE", &cfg.Telemetry.Tracing.OTLP.Insecure)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
