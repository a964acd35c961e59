package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/retention/disposition"
	"jobboard-hq/custodian/pkg/retention/storage"
	"jobboard-hq/custodian/pkg/telemetry/tracing"
)

// StepCount records how many rows one step affected.
type StepCount struct {
	Step string `json:"step"`
	Rows int64  `json:"rows"`
}

// Result describes what happened to one candidate.
type Result struct {
	Kind      retention.SubjectKind `json:"kind"`
	SubjectID string                `json:"subject_id"`
	Outcome   retention.Outcome     `json:"outcome"`
	Plan      string                `json:"plan,omitempty"`
	Reason    string                `json:"reason,omitempty"`

	// Applications handled by the applicant branch of an account plan. In a
	// dry run these are the counts a live run would produce.
	AnonymizedApplications int `json:"anonymized_applications,omitempty"`
	DeletedApplications    int `json:"deleted_applications,omitempty"`

	Steps []StepCount `json:"steps,omitempty"`
}

func (r *Result) add(step string, rows int64) {
	if rows > 0 {
		r.Steps = append(r.Steps, StepCount{Step: step, Rows: rows})
	}
}

// Executor applies dispositions. Each candidate runs in its own
// transaction; a dry run takes the same read and verification path and
// stops before the first write.
type Executor struct {
	store    storage.Store
	sentinel string
	dryRun   bool
	logger   *slog.Logger
}

// NewExecutor creates an executor for one sweep invocation.
func NewExecutor(store storage.Store, sentinelID string, dryRun bool) *Executor {
	return &Executor{
		store:    store,
		sentinel: sentinelID,
		dryRun:   dryRun,
		logger:   slog.Default().With("component", "retention.cascade"),
	}
}

// DryRun reports whether the executor only previews.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// ProcessApplication resolves and executes the disposition of one application.
func (e *Executor) ProcessApplication(ctx context.Context, id string) (*Result, error) {
	app, err := e.store.GetApplication(ctx, id)
	if retention.IsNotFound(err) {
		return absent(retention.SubjectApplication, id), nil
	}
	if err != nil {
		return nil, retention.NewTransactionError(retention.SubjectApplication, id, "load", err)
	}

	plan := disposition.ResolveApplication(app)
	if plan.Skipped() {
		return skipped(plan), nil
	}
	return e.ExecuteApplication(ctx, id, plan)
}

// ProcessAccount resolves and executes the disposition of one account.
func (e *Executor) ProcessAccount(ctx context.Context, id string) (*Result, error) {
	acc, err := e.store.GetAccount(ctx, id)
	if retention.IsNotFound(err) {
		return absent(retention.SubjectAccount, id), nil
	}
	if err != nil {
		return nil, retention.NewTransactionError(retention.SubjectAccount, id, "load", err)
	}

	plan := disposition.ResolveAccount(acc, e.sentinel)
	if plan.Skipped() {
		return skipped(plan), nil
	}
	return e.ExecuteAccount(ctx, id, plan)
}

// ExecuteApplication deletes an application with its dependents according to plan.
func (e *Executor) ExecuteApplication(ctx context.Context, id string, plan disposition.Plan) (*Result, error) {
	if plan.Skipped() {
		return skipped(plan), nil
	}
	res := &Result{Kind: retention.SubjectApplication, SubjectID: id, Plan: plan.String()}

	if e.dryRun {
		app, err := e.store.GetApplication(ctx, id)
		if retention.IsNotFound(err) {
			return absent(retention.SubjectApplication, id), nil
		}
		if err != nil {
			return nil, retention.NewTransactionError(retention.SubjectApplication, id, "load", err)
		}
		if err := plan.VerifyApplication(app); err != nil {
			return nil, err
		}
		res.Outcome = retention.OutcomePreviewed
		return res, nil
	}

	err := e.store.WithinTx(ctx, func(tx storage.Tx) error {
		app, err := tx.GetApplication(ctx, id)
		if retention.IsNotFound(err) {
			res.Outcome = retention.OutcomeAlreadyAbsent
			return nil
		}
		if err != nil {
			return &stepError{step: "load", err: err}
		}
		if err := plan.VerifyApplication(app); err != nil {
			return err
		}

		if err := e.deleteApplication(ctx, tx, id, res, ""); err != nil {
			return err
		}
		res.Outcome = retention.OutcomeDeleted
		return nil
	})
	if err != nil {
		return nil, e.wrap(retention.SubjectApplication, id, err)
	}
	return res, nil
}

// ExecuteAccount runs every branch of an account plan and then deletes the
// account row, all in one transaction.
func (e *Executor) ExecuteAccount(ctx context.Context, id string, plan disposition.Plan) (*Result, error) {
	if plan.Skipped() {
		return skipped(plan), nil
	}
	res := &Result{Kind: retention.SubjectAccount, SubjectID: id, Plan: plan.String()}

	if e.dryRun {
		acc, err := e.store.GetAccount(ctx, id)
		if retention.IsNotFound(err) {
			return absent(retention.SubjectAccount, id), nil
		}
		if err != nil {
			return nil, retention.NewTransactionError(retention.SubjectAccount, id, "load", err)
		}
		if err := plan.VerifyAccount(acc, e.sentinel); err != nil {
			return nil, err
		}
		apps, err := e.store.ApplicationsByApplicant(ctx, id)
		if err != nil {
			return nil, retention.NewTransactionError(retention.SubjectAccount, id, "load_applications", err)
		}
		if len(apps) > 0 {
			res.Plan = plan.WithApplicantHistory().String()
		}
		for _, app := range apps {
			if app.State.IsFinalized() {
				res.AnonymizedApplications++
			} else {
				res.DeletedApplications++
			}
		}
		res.Outcome = retention.OutcomePreviewed
		return res, nil
	}

	err := e.store.WithinTx(ctx, func(tx storage.Tx) error {
		acc, err := tx.GetAccount(ctx, id)
		if retention.IsNotFound(err) {
			res.Outcome = retention.OutcomeAlreadyAbsent
			return nil
		}
		if err != nil {
			return &stepError{step: "load", err: err}
		}
		if err := plan.VerifyAccount(acc, e.sentinel); err != nil {
			return err
		}
		apps, err := tx.ApplicationsByApplicant(ctx, id)
		if err != nil {
			return &stepError{step: "load_applications", err: err}
		}
		steps := plan
		if len(apps) > 0 {
			steps = plan.WithApplicantHistory()
		}
		res.Plan = steps.String()

		res.Outcome = retention.OutcomeDeleted
		for _, step := range steps.Steps {
			switch d := step.(type) {
			case disposition.DeleteApplicantData:
				if err := e.removeApplicantData(ctx, tx, apps, res); err != nil {
					return err
				}
			case disposition.AnonymizeStaffData:
				if err := e.runSteps(ctx, tx, retention.SubjectAccount, id, d.Sentinel, nil, StaffAnonymization, res, ""); err != nil {
					return err
				}
				res.Outcome = retention.OutcomeAnonymized
			}
		}

		return e.runSteps(ctx, tx, retention.SubjectAccount, id, e.sentinel, nil, AccountDeletion, res, "")
	})
	if err != nil {
		return nil, e.wrap(retention.SubjectAccount, id, err)
	}
	return res, nil
}

// removeApplicantData anonymizes the applicant's finalized applications and
// deletes all others.
func (e *Executor) removeApplicantData(ctx context.Context, tx storage.Tx, apps []*retention.Application, res *Result) error {
	for _, app := range apps {
		prefix := "application " + app.ID + " "
		if app.State.IsFinalized() {
			docs, err := tx.DocumentsOfApplication(ctx, app.ID)
			if err != nil {
				return &stepError{step: prefix + "load_documents", err: err}
			}
			if err := e.runSteps(ctx, tx, retention.SubjectApplication, app.ID, e.sentinel, docs, ApplicationAnonymization, res, prefix); err != nil {
				return err
			}
			res.AnonymizedApplications++
			continue
		}
		if err := e.deleteApplication(ctx, tx, app.ID, res, prefix); err != nil {
			return err
		}
		res.DeletedApplications++
	}
	return nil
}

func (e *Executor) deleteApplication(ctx context.Context, tx storage.Tx, id string, res *Result, prefix string) error {
	docs, err := tx.DocumentsOfApplication(ctx, id)
	if err != nil {
		return &stepError{step: prefix + "load_documents", err: err}
	}
	return e.runSteps(ctx, tx, retention.SubjectApplication, id, e.sentinel, docs, ApplicationDeletion, res, prefix)
}

func (e *Executor) runSteps(ctx context.Context, tx storage.Tx, scope retention.SubjectKind, id, sentinel string,
	docs []string, steps []Step, res *Result, prefix string) error {
	span := trace.SpanFromContext(ctx)
	for _, step := range steps {
		rows, err := e.runStep(ctx, tx, scope, id, sentinel, docs, step)
		if err != nil {
			return &stepError{step: prefix + step.String(), err: err}
		}
		res.add(prefix+step.String(), rows)
		tracing.AddStepEvent(span, prefix+step.String(), rows)
		e.logger.Debug("cascade step done",
			"subject", scope,
			"id", id,
			"step", step.String(),
			"rows", rows,
		)
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, tx storage.Tx, scope retention.SubjectKind, id, sentinel string,
	docs []string, step Step) (int64, error) {
	switch step.Action {
	case DeleteDependents:
		if scope == retention.SubjectApplication {
			return tx.DeleteByApplication(ctx, step.Entity, id)
		}
		return tx.DeleteByAccount(ctx, step.Entity, id)
	case DeleteUnreferenced:
		return tx.DeleteUnreferencedDocuments(ctx, docs)
	case Reassign:
		return tx.ReassignOwner(ctx, step.Entity, id, sentinel)
	case CloseJobs:
		return tx.CloseJobsOf(ctx, id)
	case AnonymizeRow:
		if err := tx.AnonymizeApplication(ctx, id, sentinel); err != nil {
			return 0, err
		}
		return 1, nil
	case DeleteRow:
		var existed bool
		var err error
		if scope == retention.SubjectApplication {
			existed, err = tx.DeleteApplication(ctx, id)
		} else {
			existed, err = tx.DeleteAccount(ctx, id)
		}
		if err != nil || !existed {
			return 0, err
		}
		return 1, nil
	}
	return 0, fmt.Errorf("unknown cascade action %q", step.Action)
}

// stepError carries the failing step out of a transaction.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }
func (e *stepError) Unwrap() error { return e.err }

// wrap turns a failed transaction into the error taxonomy. Disposition
// violations pass through unchanged.
func (e *Executor) wrap(kind retention.SubjectKind, id string, err error) error {
	if retention.IsDispositionViolation(err) {
		return err
	}
	var se *stepError
	if errors.As(err, &se) {
		return retention.NewTransactionError(kind, id, se.step, se.err)
	}
	return retention.NewTransactionError(kind, id, "", err)
}

func absent(kind retention.SubjectKind, id string) *Result {
	return &Result{Kind: kind, SubjectID: id, Outcome: retention.OutcomeAlreadyAbsent}
}

func skipped(plan disposition.Plan) *Result {
	return &Result{
		Kind:      plan.Kind,
		SubjectID: plan.SubjectID,
		Outcome:   retention.OutcomeSkipped,
		Plan:      plan.String(),
		Reason:    plan.SkipReason(),
	}
}
