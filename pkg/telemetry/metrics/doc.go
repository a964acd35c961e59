// Package metrics exposes Prometheus metrics for retention sweeps and
// deletion warnings.
//
// # Metrics
//
//	custodian_retention_runs_total{sweep,stop_reason}
//	custodian_retention_candidates_total{sweep,outcome}
//	custodian_retention_run_duration_seconds{sweep}
//	custodian_retention_last_run_timestamp_seconds{sweep}
//	custodian_notifications_total{type,result}
//	custodian_notifications_queue_depth
//
// plus Go runtime, process and, for SQL backends, connection pool
// collectors.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	run := runner.New(runner.Options{Recorder: collector})
//	sender := notify.NewAsyncSender(transport, notify.AsyncConfig{Recorder: collector})
//
//	router.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Alerting on custodian_retention_last_run_timestamp_seconds catches a
// scheduler that silently stopped firing.
package metrics
