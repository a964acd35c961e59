// Package config provides configuration management for custodian.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. Unknown keys are rejected,
// defaults fill zero values, and every rule is checked before a
// configuration becomes visible to the sweeps.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("custodian.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("custodian.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention CUSTODIAN_SECTION_FIELD.
// For example:
//
//   - CUSTODIAN_RETENTION_ENABLED overrides retention.enabled
//   - CUSTODIAN_STORAGE_POSTGRES_PASSWORD overrides storage.postgres.password
//   - CUSTODIAN_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Reloading
//
// Sweeps read GetConfig once per invocation, so a successful ReloadConfig
// changes enabled, dry_run and the retention periods for the next run. The
// Watcher calls ReloadConfig when the file changes. Cron schedules are bound
// when the scheduler starts and need a restart.
//
// # Example Configuration
//
//	retention:
//	  enabled: true
//	  dry_run: false
//	  days_before_deletion: 180
//	  inactive_days_before_deletion: 365
//	  warning_window_days: 28
//	  schedules:
//	    applications: "0 3 * * *"
//
//	storage:
//	  backend: "postgres"
//	  postgres:
//	    host: "db.internal"
//	    database: "jobboard"
//	    user: "custodian"
//
//	notification:
//	  transport: "smtp"
//	  from: "no-reply@jobs.example"
//	  smtp:
//	    host: "mail.internal"
//
// # Validation
//
// Validation errors include field paths:
//
//	configuration validation failed with 2 errors:
//	  - retention.batch_size: must be between 1 and 10000
//	  - retention.schedules.warnings: invalid cron expression "every day": ...
package config
