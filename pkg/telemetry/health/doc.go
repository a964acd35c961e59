// Package health provides liveness, readiness and version endpoints for the
// custodian admin server.
//
// Liveness only reports that the process is up. Readiness runs the
// registered checks concurrently, each bounded by the configured timeout:
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("storage", health.StorageCheck(store))
//	checker.RegisterCheck("scheduler", health.SchedulerCheck(sched.IsRunning))
//	checker.RegisterOptionalCheck("notification_transport", func(ctx context.Context) error {
//		return notify.Ping(ctx, transport)
//	})
//
// A failing critical check answers 503 with status "not_ready". A failing
// optional check answers 200 with status "degraded".
package health
