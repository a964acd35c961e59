package config

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with the memory backend and the
// log transport. The resulting configuration is valid.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{
		Storage:      StorageConfig{Backend: "memory"},
		Notification: NotificationConfig{Transport: "log"},
	}
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithRetention enables retention with the given periods.
func (b *ConfigBuilder) WithRetention(applicationDays, accountDays, warningDays int) *ConfigBuilder {
	b.cfg.Retention.Enabled = true
	b.cfg.Retention.DaysBeforeDeletion = applicationDays
	b.cfg.Retention.InactiveDaysBeforeDeletion = accountDays
	b.cfg.Retention.WarningWindowDays = warningDays
	return b
}

// WithDryRun sets retention.dry_run.
func (b *ConfigBuilder) WithDryRun(dryRun bool) *ConfigBuilder {
	b.cfg.Retention.DryRun = dryRun
	return b
}

// WithBatchSize sets retention.batch_size.
func (b *ConfigBuilder) WithBatchSize(n int) *ConfigBuilder {
	b.cfg.Retention.BatchSize = n
	return b
}

// WithSchedules sets the three cron expressions.
func (b *ConfigBuilder) WithSchedules(applications, accounts, warnings string) *ConfigBuilder {
	b.cfg.Retention.Schedules = SchedulesConfig{
		Applications: applications,
		Accounts:     accounts,
		Warnings:     warnings,
	}
	return b
}

// WithSQLite selects the sqlite backend at path.
func (b *ConfigBuilder) WithSQLite(path string) *ConfigBuilder {
	b.cfg.Storage.Backend = "sqlite"
	b.cfg.Storage.SQLite.Path = path
	return b
}

// WithLogLevel sets the logging level.
func (b *ConfigBuilder) WithLogLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}
