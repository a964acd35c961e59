// Package telemetry wires up observability for custodian: structured
// logging, Prometheus metrics, OpenTelemetry tracing and health checks.
//
// # Usage
//
//	tel, err := telemetry.Setup(&cfg.Telemetry, health.NewVersionInfo(version, commit, buildTime))
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	runner.New(runner.Options{Recorder: tel.Metrics()})
//
// # PII Protection
//
// Logs are redacted by default:
//
//   - Emails: jane@example.com → ***@example.com
//   - Bearer tokens, passwords and secrets in key=value form
//   - International phone numbers: +4930123456 → +***
//
// Custom redaction patterns replace the defaults.
package telemetry
