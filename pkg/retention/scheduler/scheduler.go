// Package scheduler fires the retention sweeps on their cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/sweep"
)

// SweepRunner runs a named sweep. *sweep.Engine implements it.
type SweepRunner interface {
	Run(ctx context.Context, name string, opts sweep.RunOptions) ([]*runner.Report, error)
}

// Scheduler runs each sweep on its own cron schedule. A sweep that is
// still running when its next fire time comes is skipped, not queued.
//
// Cron expressions are bound at Start; a configuration reload does not
// reschedule.
type Scheduler struct {
	sweeps    SweepRunner
	schedules map[string]string
	location  *time.Location
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	cancel  context.CancelFunc
	running bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates schedules in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) { s.location = loc }
}

// New creates a scheduler for the three retention sweeps. An empty
// expression leaves that sweep unscheduled.
func New(sweeps SweepRunner, schedules config.SchedulesConfig, opts ...Option) *Scheduler {
	s := &Scheduler{
		sweeps: sweeps,
		schedules: map[string]string{
			sweep.Applications: schedules.Applications,
			sweep.Accounts:     schedules.Accounts,
			sweep.Warnings:     schedules.Warnings,
		},
		location: time.UTC,
		logger:   slog.Default().With("component", "retention.scheduler"),
		entries:  make(map[string]cron.EntryID),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the schedules, registers the sweeps and starts the cron
// loop. The scheduler stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}

	cronLogger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cronLogger),
		cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		),
	)

	runCtx, cancel := context.WithCancel(ctx)
	entries := make(map[string]cron.EntryID, len(s.schedules))

	for _, name := range sweep.Names {
		expr := s.schedules[name]
		if expr == "" {
			s.logger.Info("sweep not scheduled", "sweep", name)
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			cancel()
			return fmt.Errorf("invalid cron schedule %q for %s sweep: %w", expr, name, err)
		}

		name := name
		id, err := c.AddFunc(expr, func() { s.fire(runCtx, name) })
		if err != nil {
			cancel()
			return fmt.Errorf("failed to schedule %s sweep: %w", name, err)
		}
		entries[name] = id
	}

	c.Start()
	s.cron = c
	s.entries = entries
	s.cancel = cancel
	s.running = true

	s.logger.Info("retention scheduler started",
		"applications", s.schedules[sweep.Applications],
		"accounts", s.schedules[sweep.Accounts],
		"warnings", s.schedules[sweep.Warnings],
		"location", s.location.String(),
	)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// fire runs one scheduled sweep. Errors are logged and never reach cron.
func (s *Scheduler) fire(ctx context.Context, name string) {
	s.logger.Info("scheduled sweep starting", "sweep", name)

	reports, err := s.sweeps.Run(ctx, name, sweep.RunOptions{Trigger: "schedule"})
	if errors.Is(err, sweep.ErrRunning) {
		s.logger.Warn("scheduled sweep skipped, a manual run is in progress", "sweep", name)
		return
	}
	if err != nil {
		s.logger.Error("scheduled sweep failed", "sweep", name, "error", err)
		return
	}

	for _, r := range reports {
		s.logger.Debug("scheduled sweep completed",
			"sweep", r.Sweep,
			"run_id", r.RunID,
			"stop_reason", r.StopReason,
			"candidates", r.Candidates,
		)
	}
}

// Stop cancels running sweeps, which end after their current candidate,
// and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRuns returns the next fire time of every scheduled sweep.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))
	if s.cron == nil {
		return out
	}
	for name, id := range s.entries {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// NextFireTimes computes the next n fire times of a cron expression after
// from, without a running scheduler.
func NextFireTimes(expr string, from time.Time, n int) ([]time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, n)
	t := from
	for i := 0; i < n; i++ {
		t = sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// cronLogger routes cron's logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
