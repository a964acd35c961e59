// Package sweep is the entry point of the retention sweeps.
//
// Each call reads the policy fresh from its PolicySource, so an operator
// toggling enabled or dry_run sees the change on the next invocation. The
// policy value is then fixed for the whole run.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/notify"
	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/retention/cascade"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/selector"
	"jobboard-hq/custodian/pkg/retention/storage"
	"jobboard-hq/custodian/pkg/retention/warning"
)

// Sweep names.
const (
	Applications = "applications"
	Accounts     = "accounts"
	Warnings     = "warnings"
)

// Names lists the sweeps in schedule order.
var Names = []string{Applications, Accounts, Warnings}

var (
	// ErrUnknownSweep is returned for a sweep name not in Names.
	ErrUnknownSweep = errors.New("unknown sweep")

	// ErrRunning is returned when the same sweep is already running in
	// this process.
	ErrRunning = errors.New("sweep already running")
)

// PolicySource supplies the policy of one invocation.
type PolicySource interface {
	Policy() (retention.Policy, error)
}

// PolicyFunc adapts a function to PolicySource.
type PolicyFunc func() (retention.Policy, error)

// Policy implements PolicySource.
func (f PolicyFunc) Policy() (retention.Policy, error) { return f() }

// ConfigSource reads the global configuration on every call.
type ConfigSource struct{}

// Policy implements PolicySource.
func (ConfigSource) Policy() (retention.Policy, error) {
	cfg := config.GetConfig()
	if cfg == nil {
		return retention.Policy{}, errors.New("configuration not initialized")
	}
	p := cfg.Retention.Policy()
	if err := p.Validate(); err != nil {
		return retention.Policy{}, err
	}
	return p, nil
}

// RunOptions modify one invocation.
type RunOptions struct {
	// DryRun forces a preview. It cannot turn off a configured dry run.
	DryRun bool

	// Trigger names what started the run, e.g. "schedule", "cli" or
	// "admin:oncall". It is copied into reports and evidence.
	Trigger string
}

// Options configures an Engine.
type Options struct {
	Store  storage.Store
	Sender notify.Sender
	Policy PolicySource

	// Clock defaults to the system clock.
	Clock retention.Clock

	// Recorder receives run metrics. Optional.
	Recorder runner.Recorder

	// Journal receives every decision. Optional.
	Journal runner.Journal

	// DefaultLanguage is used for recipients without a preferred language.
	DefaultLanguage string

	// MaxDecisions caps the decisions kept per report.
	MaxDecisions int
}

// Engine runs the sweeps and keeps the last report of each.
type Engine struct {
	store           storage.Store
	sender          notify.Sender
	policy          PolicySource
	clock           retention.Clock
	recorder        runner.Recorder
	journal         runner.Journal
	defaultLanguage string
	maxDecisions    int
	logger          *slog.Logger

	locks map[string]*sync.Mutex

	mu   sync.RWMutex
	last map[string]*runner.Report
}

// New creates an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("sweep: store is required")
	}
	if opts.Sender == nil {
		return nil, errors.New("sweep: notification sender is required")
	}
	if opts.Policy == nil {
		opts.Policy = ConfigSource{}
	}
	if opts.Clock == nil {
		opts.Clock = retention.SystemClock{}
	}

	locks := make(map[string]*sync.Mutex, len(Names))
	for _, name := range Names {
		locks[name] = &sync.Mutex{}
	}

	return &Engine{
		store:           opts.Store,
		sender:          opts.Sender,
		policy:          opts.Policy,
		clock:           opts.Clock,
		recorder:        opts.Recorder,
		journal:         opts.Journal,
		defaultLanguage: opts.DefaultLanguage,
		maxDecisions:    opts.MaxDecisions,
		logger:          slog.Default().With("component", "retention.sweep"),
		locks:           locks,
		last:            make(map[string]*runner.Report),
	}, nil
}

// Run runs the named sweep. The warnings sweep yields two reports.
func (e *Engine) Run(ctx context.Context, name string, opts RunOptions) ([]*runner.Report, error) {
	switch name {
	case Applications:
		r, err := e.RunApplications(ctx, opts)
		return single(r, err)
	case Accounts:
		r, err := e.RunAccounts(ctx, opts)
		return single(r, err)
	case Warnings:
		return e.RunWarnings(ctx, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSweep, name)
	}
}

func single(r *runner.Report, err error) ([]*runner.Report, error) {
	if err != nil {
		return nil, err
	}
	return []*runner.Report{r}, nil
}

// RunApplications deletes or anonymizes finalized applications older than
// the application retention period.
func (e *Engine) RunApplications(ctx context.Context, opts RunOptions) (*runner.Report, error) {
	unlock, err := e.acquire(Applications)
	if err != nil {
		return nil, err
	}
	defer unlock()

	policy, err := e.loadPolicy(Applications, opts)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if !policy.Enabled {
		return e.stopped(Applications, runner.StopDisabled, now), nil
	}

	exec := cascade.NewExecutor(e.store, policy.SentinelID, policy.DryRun)
	job := runner.Job{
		Sweep:   Applications,
		DryRun:  policy.DryRun,
		Trigger: opts.Trigger,
		Source:  selector.ForApplications(e.store, policy.ApplicationCutoff(now), policy.BatchSize),
		Process: process(exec.ProcessApplication),
	}

	report := e.newRunner(policy.MaxRuntime()).Run(ctx, job)
	e.remember(report)
	return report, nil
}

// RunAccounts deletes accounts inactive for longer than the account
// retention period.
func (e *Engine) RunAccounts(ctx context.Context, opts RunOptions) (*runner.Report, error) {
	unlock, err := e.acquire(Accounts)
	if err != nil {
		return nil, err
	}
	defer unlock()

	policy, err := e.loadPolicy(Accounts, opts)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if !policy.Enabled {
		return e.stopped(Accounts, runner.StopDisabled, now), nil
	}

	if !policy.DryRun {
		if err := e.store.EnsureSentinel(ctx, policy.SentinelID); err != nil {
			e.logger.Error("failed to ensure deleted-user sentinel, account sweep not started",
				"sentinel_id", policy.SentinelID, "error", err)
			return nil, fmt.Errorf("ensure sentinel account: %w", err)
		}
	}

	exec := cascade.NewExecutor(e.store, policy.SentinelID, policy.DryRun)
	job := runner.Job{
		Sweep:   Accounts,
		DryRun:  policy.DryRun,
		Trigger: opts.Trigger,
		Source:  selector.ForAccounts(e.store, policy.AccountCutoff(now), policy.BatchSize, policy.SentinelID),
		Process: process(exec.ProcessAccount),
	}

	report := e.newRunner(policy.MaxRuntime()).Run(ctx, job)
	e.remember(report)
	return report, nil
}

// RunWarnings warns applicants and inactive account holders whose records
// enter the deletion window soon. The application and account jobs share
// one runtime budget.
func (e *Engine) RunWarnings(ctx context.Context, opts RunOptions) ([]*runner.Report, error) {
	unlock, err := e.acquire(Warnings)
	if err != nil {
		return nil, err
	}
	defer unlock()

	policy, err := e.loadPolicy(Warnings, opts)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	if !policy.Enabled {
		return []*runner.Report{
			e.stopped(warning.SweepApplicationWarnings, runner.StopDisabled, now),
			e.stopped(warning.SweepAccountWarnings, runner.StopDisabled, now),
		}, nil
	}

	notifier := warning.New(e.store, e.sender, policy, now, e.defaultLanguage)
	budget := policy.MaxRuntime()

	appJob := notifier.ApplicationJob()
	appJob.Trigger = opts.Trigger
	first := e.newRunner(budget).Run(ctx, appJob)
	e.remember(first)

	remaining := budget - first.Duration()
	if first.StopReason == runner.StopBudget || remaining <= 0 {
		return []*runner.Report{first, e.stopped(warning.SweepAccountWarnings, runner.StopBudget, e.clock.Now())}, nil
	}
	if first.StopReason == runner.StopCancelled {
		return []*runner.Report{first, e.stopped(warning.SweepAccountWarnings, runner.StopCancelled, e.clock.Now())}, nil
	}

	accJob := notifier.AccountJob()
	accJob.Trigger = opts.Trigger
	second := e.newRunner(remaining).Run(ctx, accJob)
	e.remember(second)
	return []*runner.Report{first, second}, nil
}

// LastReports returns the last report of every sweep that ran, keyed by
// report sweep name.
func (e *Engine) LastReports() map[string]*runner.Report {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]*runner.Report, len(e.last))
	for k, v := range e.last {
		out[k] = v
	}
	return out
}

// LastReport returns the last report for a report sweep name.
func (e *Engine) LastReport(name string) (*runner.Report, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.last[name]
	return r, ok
}

// ReportNames returns the sorted names under which reports are kept.
func (e *Engine) ReportNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.last))
	for k := range e.last {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) acquire(name string) (func(), error) {
	lock, ok := e.locks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSweep, name)
	}
	if !lock.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrRunning, name)
	}
	return lock.Unlock, nil
}

func (e *Engine) loadPolicy(name string, opts RunOptions) (retention.Policy, error) {
	policy, err := e.policy.Policy()
	if err != nil {
		e.logger.Error("retention policy unavailable, sweep not started", "sweep", name, "error", err)
		return retention.Policy{}, fmt.Errorf("load retention policy: %w", err)
	}
	if opts.DryRun {
		policy.DryRun = true
	}
	return policy, nil
}

func (e *Engine) newRunner(budget time.Duration) *runner.Runner {
	return runner.New(runner.Options{
		Budget:       budget,
		Clock:        e.clock,
		Recorder:     e.recorder,
		Journal:      e.journal,
		MaxDecisions: e.maxDecisions,
	})
}

func (e *Engine) stopped(name string, reason runner.StopReason, now time.Time) *runner.Report {
	report := runner.Stopped(name, reason, now)
	if e.recorder != nil {
		e.recorder.RecordRun(name, string(reason), 0, now)
	}
	if reason == runner.StopDisabled {
		e.logger.Info("retention disabled, sweep skipped", "sweep", name)
	} else {
		e.logger.Info("sweep not started", "sweep", name, "stop_reason", reason)
	}
	e.remember(report)
	return report
}

func (e *Engine) remember(r *runner.Report) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last[r.Sweep] = r
}

// process adapts a cascade entry point to a runner.ProcessFunc.
func process(fn func(ctx context.Context, id string) (*cascade.Result, error)) runner.ProcessFunc {
	return func(ctx context.Context, id string) (runner.Decision, error) {
		res, err := fn(ctx, id)
		if err != nil {
			return runner.Decision{}, err
		}
		return runner.Decision{
			SubjectID: id,
			Outcome:   res.Outcome,
			Plan:      res.Plan,
			Reason:    res.Reason,
		}, nil
	}
}
