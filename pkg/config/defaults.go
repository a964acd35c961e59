package config

import "time"

// Default values for configuration fields.
const (
	// Retention defaults
	DefaultDaysBeforeDeletion         = 180
	DefaultInactiveDaysBeforeDeletion = 365
	DefaultBatchSize                  = 100
	DefaultMaxRuntimeMinutes          = 60
	DefaultWarningWindowDays          = 28
	DefaultSentinelID                 = "00000000-0000-0000-0000-000000000000"
	DefaultApplicationsSchedule       = "0 3 * * *"
	DefaultAccountsSchedule           = "30 3 * * *"
	DefaultWarningsSchedule           = "0 9 * * *"

	// Storage defaults
	DefaultStorageBackend       = "sqlite"
	DefaultSQLitePath           = "data/custodian.db"
	DefaultSQLiteMaxOpenConns   = 10
	DefaultSQLiteMaxIdleConns   = 5
	DefaultSQLiteWALMode        = true
	DefaultSQLiteBusyTimeout    = 5 * time.Second
	DefaultPostgresPort         = 5432
	DefaultPostgresSSLMode      = "require"
	DefaultPostgresMaxOpenConns = 10
	DefaultPostgresMaxIdleConns = 5
	DefaultPostgresConnLifetime = 30 * time.Minute

	// Notification defaults
	DefaultNotificationTransport = "log"
	DefaultNotificationFrom      = "no-reply@localhost"
	DefaultNotificationLanguage  = "en"
	DefaultNotificationQueueSize = 1000
	DefaultNotificationWorkers   = 2
	DefaultSMTPPort              = 587
	DefaultSMTPTimeout           = 10 * time.Second
	DefaultAMQPExchange          = "custodian.notifications"
	DefaultAMQPRoutingKeyPrefix  = "retention"

	// Admin defaults
	DefaultAdminListenAddress   = "127.0.0.1:9090"
	DefaultAdminReadTimeout     = 30 * time.Second
	DefaultAdminWriteTimeout    = 65 * time.Minute
	DefaultAdminShutdownTimeout = 30 * time.Second
	DefaultAdminTLSMinVersion   = "1.3"
	DefaultCertReloadInterval   = 5 * time.Minute

	// Secrets defaults
	DefaultSecretEnvPrefix = "CUSTODIAN_SECRET_"

	// Evidence defaults
	DefaultEvidenceBackend       = "sqlite"
	DefaultEvidencePath          = "data/evidence.db"
	DefaultEvidenceAsyncBuffer   = 1000
	DefaultEvidenceWriteTimeout  = 5 * time.Second
	DefaultEvidenceRetentionDays = 730
	DefaultEvidencePruneSchedule = "0 5 * * *"

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "custodian"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingServiceName  = "custodian"
	DefaultOTLPTimeout         = 10 * time.Second
	DefaultHealthEnabled       = true
	DefaultLivenessPath        = "/health"
	DefaultReadinessPath       = "/ready"
	DefaultVersionPath         = "/version"
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// DefaultDurationBuckets are the sweep duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{1, 5, 15, 60, 300, 900, 1800, 3600}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyRetentionDefaults(&cfg.Retention)
	applyStorageDefaults(&cfg.Storage)
	applyNotificationDefaults(&cfg.Notification)
	applyAdminDefaults(&cfg.Admin)
	applyTelemetryDefaults(&cfg.Telemetry)
	if cfg.Secrets.EnvPrefix == "" {
		cfg.Secrets.EnvPrefix = DefaultSecretEnvPrefix
	}
	applyEvidenceDefaults(&cfg.Evidence)
}

func applyEvidenceDefaults(e *EvidenceConfig) {
	if e.Backend == "" {
		e.Backend = DefaultEvidenceBackend
	}
	if e.SQLite.Path == "" {
		e.SQLite.Path = DefaultEvidencePath
	}
	if e.SQLite.MaxOpenConns == 0 {
		e.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if e.SQLite.MaxIdleConns == 0 {
		e.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if !e.SQLite.WALMode {
		e.SQLite.WALMode = DefaultSQLiteWALMode
	}
	if e.SQLite.BusyTimeout == 0 {
		e.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if e.AsyncBuffer == 0 {
		e.AsyncBuffer = DefaultEvidenceAsyncBuffer
	}
	if e.WriteTimeout == 0 {
		e.WriteTimeout = DefaultEvidenceWriteTimeout
	}
	if e.RetentionDays == 0 {
		e.RetentionDays = DefaultEvidenceRetentionDays
	}
	if e.PruneSchedule == "" {
		e.PruneSchedule = DefaultEvidencePruneSchedule
	}
}

func applyRetentionDefaults(r *RetentionConfig) {
	if r.DaysBeforeDeletion == 0 {
		r.DaysBeforeDeletion = DefaultDaysBeforeDeletion
	}
	if r.InactiveDaysBeforeDeletion == 0 {
		r.InactiveDaysBeforeDeletion = DefaultInactiveDaysBeforeDeletion
	}
	if r.BatchSize == 0 {
		r.BatchSize = DefaultBatchSize
	}
	if r.MaxRuntimeMinutes == 0 {
		r.MaxRuntimeMinutes = DefaultMaxRuntimeMinutes
	}
	if r.WarningWindowDays == 0 {
		r.WarningWindowDays = DefaultWarningWindowDays
	}
	if r.DeletedUserSentinelID == "" {
		r.DeletedUserSentinelID = DefaultSentinelID
	}
	if r.Schedules.Applications == "" {
		r.Schedules.Applications = DefaultApplicationsSchedule
	}
	if r.Schedules.Accounts == "" {
		r.Schedules.Accounts = DefaultAccountsSchedule
	}
	if r.Schedules.Warnings == "" {
		r.Schedules.Warnings = DefaultWarningsSchedule
	}
}

func applyStorageDefaults(s *StorageConfig) {
	if s.Backend == "" {
		s.Backend = DefaultStorageBackend
	}

	// SQLite defaults
	if s.SQLite.Path == "" {
		s.SQLite.Path = DefaultSQLitePath
	}
	if s.SQLite.MaxOpenConns == 0 {
		s.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if s.SQLite.MaxIdleConns == 0 {
		s.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if !s.SQLite.WALMode {
		s.SQLite.WALMode = DefaultSQLiteWALMode
	}
	if s.SQLite.BusyTimeout == 0 {
		s.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Postgres defaults
	if s.Postgres.Port == 0 {
		s.Postgres.Port = DefaultPostgresPort
	}
	if s.Postgres.SSLMode == "" {
		s.Postgres.SSLMode = DefaultPostgresSSLMode
	}
	if s.Postgres.MaxOpenConns == 0 {
		s.Postgres.MaxOpenConns = DefaultPostgresMaxOpenConns
	}
	if s.Postgres.MaxIdleConns == 0 {
		s.Postgres.MaxIdleConns = DefaultPostgresMaxIdleConns
	}
	if s.Postgres.ConnMaxLifetime == 0 {
		s.Postgres.ConnMaxLifetime = DefaultPostgresConnLifetime
	}
}

func applyNotificationDefaults(n *NotificationConfig) {
	if n.Transport == "" {
		n.Transport = DefaultNotificationTransport
	}
	if n.From == "" {
		n.From = DefaultNotificationFrom
	}
	if n.DefaultLanguage == "" {
		n.DefaultLanguage = DefaultNotificationLanguage
	}
	if n.QueueSize == 0 {
		n.QueueSize = DefaultNotificationQueueSize
	}
	if n.Workers == 0 {
		n.Workers = DefaultNotificationWorkers
	}
	if n.SMTP.Port == 0 {
		n.SMTP.Port = DefaultSMTPPort
	}
	if n.SMTP.Timeout == 0 {
		n.SMTP.Timeout = DefaultSMTPTimeout
	}
	if n.AMQP.Exchange == "" {
		n.AMQP.Exchange = DefaultAMQPExchange
	}
	if n.AMQP.RoutingKeyPrefix == "" {
		n.AMQP.RoutingKeyPrefix = DefaultAMQPRoutingKeyPrefix
	}
}

func applyAdminDefaults(a *AdminConfig) {
	// An untouched section means the server is wanted with defaults.
	if a.ListenAddress == "" {
		a.Enabled = true
		a.ListenAddress = DefaultAdminListenAddress
	}
	if a.ReadTimeout == 0 {
		a.ReadTimeout = DefaultAdminReadTimeout
	}
	if a.WriteTimeout == 0 {
		a.WriteTimeout = DefaultAdminWriteTimeout
	}
	if a.ShutdownTimeout == 0 {
		a.ShutdownTimeout = DefaultAdminShutdownTimeout
	}
	if a.TLS.MinVersion == "" {
		a.TLS.MinVersion = DefaultAdminTLSMinVersion
	}
	if a.TLS.ReloadInterval == 0 {
		a.TLS.ReloadInterval = DefaultCertReloadInterval
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	// Logging defaults
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}
	if !t.Logging.RedactPII && len(t.Logging.RedactPatterns) == 0 {
		t.Logging.RedactPII = true
	}

	// Metrics defaults
	if t.Metrics.Path == "" {
		t.Metrics.Enabled = DefaultMetricsEnabled
		t.Metrics.Path = DefaultPrometheusPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}

	// Tracing defaults
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.OTLP.Timeout == 0 {
		t.Tracing.OTLP.Timeout = DefaultOTLPTimeout
	}

	// Health defaults
	if t.Health.LivenessPath == "" && t.Health.ReadinessPath == "" && t.Health.VersionPath == "" {
		t.Health.Enabled = DefaultHealthEnabled
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.VersionPath == "" {
		t.Health.VersionPath = DefaultVersionPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
