// Package runner drives a sweep page by page under a runtime budget.
//
// Candidates are processed strictly sequentially in the selector's order. A
// failing candidate is logged and counted; it never aborts the run. The
// budget is checked between pages only, so a running cascade is never
// interrupted.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/telemetry/logging"
	"jobboard-hq/custodian/pkg/telemetry/tracing"
)

// StopReason says why a run ended.
type StopReason string

const (
	// StopExhausted means the selector returned an empty page.
	StopExhausted StopReason = "exhausted"
	// StopBudget means the runtime budget ran out between pages.
	StopBudget StopReason = "budget"
	// StopCancelled means the context was cancelled.
	StopCancelled StopReason = "cancelled"
	// StopDisabled means retention is disabled and nothing was selected.
	StopDisabled StopReason = "disabled"
	// StopSelectError means a page could not be read.
	StopSelectError StopReason = "select_error"
)

// DefaultMaxDecisions caps the decisions kept in a report.
const DefaultMaxDecisions = 1000

// Source yields candidate identifiers page by page.
type Source interface {
	Name() string
	Next(ctx context.Context) ([]string, error)
}

// Decision is what happened to one candidate.
type Decision struct {
	SubjectID string            `json:"subject_id"`
	Outcome   retention.Outcome `json:"outcome"`
	Plan      string            `json:"plan,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// ProcessFunc handles one candidate. A returned error is contained to that
// candidate.
type ProcessFunc func(ctx context.Context, id string) (Decision, error)

// Job is one sweep invocation.
type Job struct {
	Sweep   string
	DryRun  bool
	Trigger string
	Source  Source
	Process ProcessFunc
}

// Report summarizes a run.
type Report struct {
	RunID      string     `json:"run_id"`
	Sweep      string     `json:"sweep"`
	DryRun     bool       `json:"dry_run"`
	Trigger    string     `json:"trigger,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	StopReason StopReason `json:"stop_reason"`
	Error      string     `json:"error,omitempty"`

	Pages         int `json:"pages"`
	Candidates    int `json:"candidates"`
	Deleted       int `json:"deleted"`
	Anonymized    int `json:"anonymized"`
	Skipped       int `json:"skipped"`
	AlreadyAbsent int `json:"already_absent"`
	Previewed     int `json:"previewed"`
	Warned        int `json:"warned"`
	AlreadyWarned int `json:"already_warned"`
	Violations    int `json:"violations"`
	Failures      int `json:"failures"`

	Decisions          []Decision `json:"decisions,omitempty"`
	DecisionsTruncated bool       `json:"decisions_truncated,omitempty"`
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Disabled returns the report of a sweep that did not run.
func Disabled(sweep string, now time.Time) *Report {
	return Stopped(sweep, StopDisabled, now)
}

// Stopped returns the report of a sweep that ended before selecting
// anything.
func Stopped(sweep string, reason StopReason, now time.Time) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		Sweep:      sweep,
		StartedAt:  now,
		FinishedAt: now,
		StopReason: reason,
	}
}

func (r *Report) count(o retention.Outcome) {
	switch o {
	case retention.OutcomeDeleted:
		r.Deleted++
	case retention.OutcomeAnonymized:
		r.Anonymized++
	case retention.OutcomeSkipped:
		r.Skipped++
	case retention.OutcomeAlreadyAbsent:
		r.AlreadyAbsent++
	case retention.OutcomePreviewed:
		r.Previewed++
	case retention.OutcomeWarned:
		r.Warned++
	case retention.OutcomeAlreadyWarned:
		r.AlreadyWarned++
	case retention.OutcomeViolation:
		r.Violations++
	case retention.OutcomeFailed:
		r.Failures++
	}
}

// Recorder receives run and candidate measurements.
type Recorder interface {
	RecordRun(sweep, stopReason string, duration time.Duration, finishedAt time.Time)
	RecordCandidate(sweep string, outcome retention.Outcome)
}

// Journal receives every decision of a run, including those past
// MaxDecisions. Implementations must not retain run.
type Journal interface {
	RecordDecision(ctx context.Context, run *Report, d Decision)
}

type nopRecorder struct{}

func (nopRecorder) RecordRun(string, string, time.Duration, time.Time) {}
func (nopRecorder) RecordCandidate(string, retention.Outcome)          {}

// Options configures a Runner.
type Options struct {
	// Budget is the maximum wall time, checked between pages. Zero means
	// no budget.
	Budget time.Duration

	// Clock defaults to retention.SystemClock.
	Clock retention.Clock

	// Recorder defaults to a no-op.
	Recorder Recorder

	// MaxDecisions caps Report.Decisions. Default: DefaultMaxDecisions.
	MaxDecisions int

	// Journal is optional.
	Journal Journal
}

// Runner executes jobs.
type Runner struct {
	budget       time.Duration
	clock        retention.Clock
	recorder     Recorder
	journal      Journal
	maxDecisions int
	tracer       trace.Tracer
	logger       *slog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = retention.SystemClock{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.MaxDecisions <= 0 {
		opts.MaxDecisions = DefaultMaxDecisions
	}
	return &Runner{
		budget:       opts.Budget,
		clock:        opts.Clock,
		recorder:     opts.Recorder,
		journal:      opts.Journal,
		maxDecisions: opts.MaxDecisions,
		tracer:       otel.Tracer("jobboard-hq/custodian/retention"),
		logger:       slog.Default().With("component", "retention.runner"),
	}
}

// Run processes pages until the source is exhausted, the budget runs out or
// ctx is cancelled. It always returns a report.
func (r *Runner) Run(ctx context.Context, job Job) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		Sweep:     job.Sweep,
		DryRun:    job.DryRun,
		Trigger:   job.Trigger,
		StartedAt: r.clock.Now(),
	}

	ctx, span := r.tracer.Start(ctx, "retention.sweep."+job.Sweep)
	defer span.End()
	tracing.SetRunAttributes(span, report.RunID, job.Sweep, job.DryRun)

	ctx = logging.WithRunID(ctx, report.RunID)
	ctx = logging.WithSweep(ctx, job.Sweep)
	if traceID := tracing.TraceID(ctx); traceID != "" {
		ctx = logging.WithTraceID(ctx, traceID)
	}
	logger := r.logger.With("run_id", report.RunID, "sweep", job.Sweep, "dry_run", job.DryRun, "trigger", job.Trigger)
	logger.Info("retention sweep started", "source", job.Source.Name(), "budget", r.budget)

	report.StopReason = r.loop(ctx, job, report, logger)
	report.FinishedAt = r.clock.Now()

	tracing.SetRunResult(span, string(report.StopReason), report.Candidates, report.Failures)
	r.recorder.RecordRun(job.Sweep, string(report.StopReason), report.Duration(), report.FinishedAt)

	logArgs := []any{
		"stop_reason", report.StopReason,
		"pages", report.Pages,
		"candidates", report.Candidates,
		"deleted", report.Deleted,
		"anonymized", report.Anonymized,
		"skipped", report.Skipped,
		"already_absent", report.AlreadyAbsent,
		"previewed", report.Previewed,
		"warned", report.Warned,
		"violations", report.Violations,
		"failures", report.Failures,
		"duration", report.Duration(),
	}
	switch report.StopReason {
	case StopBudget:
		logger.Info("retention sweep stopped by runtime budget, remaining candidates deferred", logArgs...)
	case StopSelectError:
		logger.Error("retention sweep aborted", append(logArgs, "error", report.Error)...)
	default:
		logger.Info("retention sweep finished", logArgs...)
	}
	return report
}

func (r *Runner) loop(ctx context.Context, job Job, report *Report, logger *slog.Logger) StopReason {
	for {
		if ctx.Err() != nil {
			return StopCancelled
		}
		if r.budget > 0 && r.clock.Now().Sub(report.StartedAt) >= r.budget {
			return StopBudget
		}

		ids, err := job.Source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return StopCancelled
			}
			report.Error = err.Error()
			return StopSelectError
		}
		if len(ids) == 0 {
			return StopExhausted
		}

		report.Pages++
		logger.Debug("processing page", "page", report.Pages, "size", len(ids))

		for _, id := range ids {
			if ctx.Err() != nil {
				return StopCancelled
			}
			r.processOne(ctx, job, id, report, logger)
		}
	}
}

func (r *Runner) processOne(ctx context.Context, job Job, id string, report *Report, logger *slog.Logger) {
	ctx, span := r.tracer.Start(ctx, "retention.candidate")
	defer span.End()
	ctx = logging.WithCandidate(ctx, id)

	d, err := job.Process(ctx, id)
	if err != nil {
		d = Decision{SubjectID: id, Outcome: retention.OutcomeFailed, Error: err.Error()}
		if retention.IsDispositionViolation(err) {
			d.Outcome = retention.OutcomeViolation
			logger.Error("disposition violation, candidate left untouched", "candidate_id", id, "error", err)
		} else {
			logger.Error("candidate failed, continuing with next", "candidate_id", id, "error", err)
		}
		tracing.SetError(span, err)
	}
	if d.SubjectID == "" {
		d.SubjectID = id
	}

	switch d.Outcome {
	case retention.OutcomeAlreadyAbsent, retention.OutcomeSkipped, retention.OutcomeAlreadyWarned:
		logger.Debug("candidate unchanged", "candidate_id", id, "outcome", d.Outcome, "reason", d.Reason)
	case retention.OutcomeViolation, retention.OutcomeFailed:
	default:
		logger.Info("candidate processed", "candidate_id", id, "outcome", d.Outcome, "plan", d.Plan)
	}

	tracing.SetCandidateAttributes(span, id, string(d.Outcome))
	report.Candidates++
	report.count(d.Outcome)
	r.recorder.RecordCandidate(job.Sweep, d.Outcome)
	if r.journal != nil {
		r.journal.RecordDecision(ctx, report, d)
	}

	if len(report.Decisions) < r.maxDecisions {
		report.Decisions = append(report.Decisions, d)
	} else {
		report.DecisionsTruncated = true
	}
}
