package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"jobboard-hq/custodian/pkg/cli"
	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/evidence/pruning"
	"jobboard-hq/custodian/pkg/notify"
	"jobboard-hq/custodian/pkg/retention/scheduler"
	"jobboard-hq/custodian/pkg/retention/sweep"
	"jobboard-hq/custodian/pkg/server"
	"jobboard-hq/custodian/pkg/telemetry/health"
)

var runFlags struct {
	listenAddress string
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sweep scheduler and admin server",
	Long: `Run the retention sweeps on their cron schedules until interrupted.

The admin server exposes health probes, Prometheus metrics, sweep status and
manual triggers. The configuration file is watched and policy changes apply
to the next sweep; schedule changes need a restart.

Examples:
  # Start with default config
  custodian run

  # Start with custom config
  custodian run --config /etc/custodian/config.yaml

  # Override admin listen address
  custodian run --listen 0.0.0.0:9090`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override admin listen address")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Admin.ListenAddress = runFlags.listenAddress
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	started := time.Now()
	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
		defer cancel()
		a.close(closeCtx)
	}()

	logger := a.telemetry.Logger().With("component", "custodian")
	logger.Info("custodian starting",
		"version", Version,
		"config", config.Path(),
		"storage", cfg.Storage.Backend,
		"transport", a.transport.Name(),
		"enabled", cfg.Retention.Enabled,
		"dry_run", cfg.Retention.DryRun,
		"evidence", cfg.Evidence.Enabled,
	)

	sched := scheduler.New(a.engine, cfg.Retention.Schedules)
	if err := sched.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer sched.Stop()

	if a.evidence != nil {
		pruneSched := pruning.NewScheduler(pruning.NewPruner(a.evidence, pruningConfig(&cfg.Evidence)))
		if err := pruneSched.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer pruneSched.Stop()
		if next := pruneSched.NextRun(); next != nil {
			logger.Info("next evidence pruning", "at", next.Format(time.RFC3339))
		}
	}

	if !runFlags.noWatch {
		watcher, err := config.NewWatcher(config.Path(), 0)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer watcher.Stop()
	}

	registerChecks(a, sched, started)

	errChan := make(chan error, 1)
	var srv *server.Server
	if cfg.Admin.Enabled {
		srv = server.NewServer(&cfg.Admin, &cfg.Telemetry, server.Deps{
			Sweeps:   a.engine,
			Schedule: sched,
			Health:   a.telemetry.Health(),
			Metrics:  a.telemetry.Metrics().Handler(),
			Version:  a.telemetry.Version(),
			Evidence: a.evidence,
		})
		go func() {
			if err := srv.Start(ctx); err != nil {
				errChan <- err
			}
		}()
	}

	for name, expr := range scheduleExpressions(cfg.Retention.Schedules) {
		if next, err := scheduler.NextFireTimes(expr, time.Now(), 1); err == nil && len(next) == 1 {
			logger.Info("next sweep", "sweep", name, "at", next[0].Format(time.RFC3339))
		}
	}

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case <-ctx.Done():
	}

	logger.Info("custodian stopping")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Admin.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return cli.NewCommandError("run", err)
		}
	}
	return nil
}

// registerChecks wires readiness: storage and scheduler are critical, the
// notification transport and overdue sweeps only degrade readiness.
func registerChecks(a *app, sched *scheduler.Scheduler, started time.Time) {
	checker := a.telemetry.Health()
	checker.RegisterCheck("storage", health.StorageCheck(a.store))
	checker.RegisterCheck("scheduler", health.SchedulerCheck(sched.IsRunning))
	checker.RegisterOptionalCheck("notifications", func(ctx context.Context) error {
		return notify.Ping(ctx, a.transport)
	})
	if a.evidence != nil {
		checker.RegisterOptionalCheck("evidence", func(ctx context.Context) error {
			_, err := a.evidence.Query(ctx, &evidence.Query{Limit: 1})
			return err
		})
	}

	for name, expr := range scheduleExpressions(a.cfg.Retention.Schedules) {
		maxAge, ok := staleAfter(expr, started)
		if !ok {
			continue
		}
		name := name
		lastRun := func() time.Time {
			if r, ok := a.engine.LastReport(name); ok {
				return r.FinishedAt
			}
			return time.Time{}
		}
		checker.RegisterOptionalCheck("sweep."+name, health.StaleRunCheck(name, lastRun, started, maxAge, time.Now))
	}
}

func pruningConfig(c *config.EvidenceConfig) pruning.Config {
	return pruning.Config{
		RetentionDays: c.RetentionDays,
		MaxRecords:    c.MaxRecords,
		PruneSchedule: c.PruneSchedule,
		ArchiveDir:    c.ArchiveDir,
	}
}

func scheduleExpressions(s config.SchedulesConfig) map[string]string {
	return map[string]string{
		sweep.Applications: s.Applications,
		sweep.Accounts:     s.Accounts,
		sweep.Warnings:     s.Warnings,
	}
}

// staleAfter returns twice the interval between the next two fire times
// plus an hour of slack. Unscheduled sweeps are never stale.
func staleAfter(expr string, from time.Time) (time.Duration, bool) {
	if expr == "" {
		return 0, false
	}
	next, err := scheduler.NextFireTimes(expr, from, 2)
	if err != nil || len(next) < 2 {
		slog.Warn("cannot derive stale threshold", "schedule", expr, "error", err)
		return 0, false
	}
	return 2*next[1].Sub(next[0]) + time.Hour, true
}

func printNextRuns(cmd *cobra.Command, schedules config.SchedulesConfig, n int) error {
	now := time.Now()
	out := cmd.OutOrStdout()
	for _, name := range sweep.Names {
		expr := scheduleExpressions(schedules)[name]
		if expr == "" {
			fmt.Fprintf(out, "%-13s not scheduled\n", name)
			continue
		}
		times, err := scheduler.NextFireTimes(expr, now, n)
		if err != nil {
			return cli.NewConfigError("retention.schedules."+name, err.Error())
		}
		fmt.Fprintf(out, "%-13s %s\n", name, expr)
		for _, t := range times {
			fmt.Fprintf(out, "  %s\n", t.Format(time.RFC3339))
		}
	}
	return nil
}
