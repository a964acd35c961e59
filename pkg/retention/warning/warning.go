// Package warning notifies owners of records that will be deleted soon.
//
// A record is warned when its activity timestamp lies in the half-open
// window [cutoff, cutoff+warningWindowDays), where cutoff is the deletion
// cutoff of the same sweep. The window starts exactly where deletion
// eligibility ends, so a record is never both warned and deleted by runs at
// the same instant.
//
// A bookkeeping row per record stores when the warning went out and the
// activity timestamp it was issued for. The row is committed before the
// notification is queued and is not rolled back if delivery fails: a
// record is warned at most once per activity timestamp. New activity moves
// the record out of the window; when it comes back, the stored timestamp no
// longer matches and the warning is sent again.
package warning

import (
	"context"
	"log/slog"
	"time"

	"jobboard-hq/custodian/pkg/notify"
	"jobboard-hq/custodian/pkg/retention"
	"jobboard-hq/custodian/pkg/retention/disposition"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/selector"
	"jobboard-hq/custodian/pkg/retention/storage"
)

// Skip reasons specific to warnings.
const (
	ReasonAnonymized    = "anonymized"
	ReasonOutsideWindow = "outside_window"
	ReasonNoRecipient   = "no_recipient"
)

// Sweep names of the two warning jobs.
const (
	SweepApplicationWarnings = "application_warnings"
	SweepAccountWarnings     = "account_warnings"
)

// Notifier runs the warning checks of one invocation.
type Notifier struct {
	store           storage.Store
	sender          notify.Sender
	policy          retention.Policy
	now             time.Time
	defaultLanguage string
	logger          *slog.Logger
}

// New creates a notifier for a policy evaluated at now.
func New(store storage.Store, sender notify.Sender, policy retention.Policy, now time.Time, defaultLanguage string) *Notifier {
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}
	return &Notifier{
		store:           store,
		sender:          sender,
		policy:          policy,
		now:             now,
		defaultLanguage: defaultLanguage,
		logger:          slog.Default().With("component", "retention.warning"),
	}
}

// ApplicationJob returns the runner job that warns applicants.
func (n *Notifier) ApplicationJob() runner.Job {
	window := n.policy.ApplicationWarningWindow(n.now)
	return runner.Job{
		Sweep:   SweepApplicationWarnings,
		DryRun:  n.policy.DryRun,
		Source:  selector.ForApplicationWarnings(n.store, window, n.policy.BatchSize),
		Process: n.ProcessApplication,
	}
}

// AccountJob returns the runner job that warns inactive account holders.
func (n *Notifier) AccountJob() runner.Job {
	window := n.policy.AccountWarningWindow(n.now)
	return runner.Job{
		Sweep:   SweepAccountWarnings,
		DryRun:  n.policy.DryRun,
		Source:  selector.ForAccountWarnings(n.store, window, n.policy.BatchSize, n.policy.SentinelID),
		Process: n.ProcessAccount,
	}
}

// ProcessApplication warns the applicant of one application if it is due.
func (n *Notifier) ProcessApplication(ctx context.Context, id string) (runner.Decision, error) {
	app, err := n.store.GetApplication(ctx, id)
	if retention.IsNotFound(err) {
		return decision(id, retention.OutcomeAlreadyAbsent, ""), nil
	}
	if err != nil {
		return runner.Decision{}, err
	}

	plan := disposition.ResolveApplication(app)
	switch {
	case plan.Skipped():
		return decision(id, retention.OutcomeSkipped, plan.SkipReason()), nil
	case app.Anonymized:
		return decision(id, retention.OutcomeSkipped, ReasonAnonymized), nil
	case !n.policy.ApplicationWarningWindow(n.now).Contains(app.LastModifiedAt):
		return decision(id, retention.OutcomeSkipped, ReasonOutsideWindow), nil
	}

	applicant, err := n.store.GetAccount(ctx, app.ApplicantID)
	if retention.IsNotFound(err) || (err == nil && applicant.ID == n.policy.SentinelID) {
		return decision(id, retention.OutcomeSkipped, ReasonNoRecipient), nil
	}
	if err != nil {
		return runner.Decision{}, err
	}

	return n.warn(ctx, retention.SubjectApplication, id, app.LastModifiedAt, applicant,
		notify.TypeApplicationDeletionWarning, n.policy.ApplicationRetentionDays)
}

// ProcessAccount warns the holder of one inactive account if it is due.
func (n *Notifier) ProcessAccount(ctx context.Context, id string) (runner.Decision, error) {
	acc, err := n.store.GetAccount(ctx, id)
	if retention.IsNotFound(err) {
		return decision(id, retention.OutcomeAlreadyAbsent, ""), nil
	}
	if err != nil {
		return runner.Decision{}, err
	}

	plan := disposition.ResolveAccount(acc, n.policy.SentinelID)
	if plan.Skipped() {
		return decision(id, retention.OutcomeSkipped, plan.SkipReason()), nil
	}
	if !n.policy.AccountWarningWindow(n.now).Contains(acc.LastActivityAt) {
		return decision(id, retention.OutcomeSkipped, ReasonOutsideWindow), nil
	}

	d, err := n.warn(ctx, retention.SubjectAccount, id, acc.LastActivityAt, acc,
		notify.TypeAccountDeletionWarning, n.policy.AccountRetentionDays)
	d.Plan = plan.String()
	return d, err
}

func (n *Notifier) warn(ctx context.Context, kind retention.SubjectKind, id string, activity time.Time,
	recipient *retention.Account, typ notify.Type, retentionDays int) (runner.Decision, error) {
	prev, err := n.store.GetWarning(ctx, kind, id)
	if err != nil && !retention.IsNotFound(err) {
		return runner.Decision{}, err
	}
	if prev.Covers(activity) {
		return decision(id, retention.OutcomeAlreadyWarned, ""), nil
	}
	if recipient.Email == "" {
		return decision(id, retention.OutcomeSkipped, ReasonNoRecipient), nil
	}

	if n.policy.DryRun {
		return decision(id, retention.OutcomePreviewed, ""), nil
	}

	w := &retention.Warning{
		Kind:             kind,
		SubjectID:        id,
		NotificationType: string(typ),
		ActivityAt:       activity,
		WarnedAt:         n.now,
	}
	err = n.store.WithinTx(ctx, func(tx storage.Tx) error {
		return tx.RecordWarning(ctx, w)
	})
	if err != nil {
		return runner.Decision{}, retention.NewTransactionError(kind, id, "record_warning", err)
	}

	lang := recipient.PreferredLanguage
	if lang == "" {
		lang = n.defaultLanguage
	}
	n.sender.SendAsync(ctx, notify.Notification{
		Type: typ,
		Recipient: notify.Recipient{
			AccountID: recipient.ID,
			Email:     recipient.Email,
			Name:      recipient.FullName(),
		},
		Language:     lang,
		SubjectKind:  kind,
		SubjectID:    id,
		DeletionDate: retention.DeletionDate(activity, retentionDays),
	})
	n.logger.Debug("deletion warning queued", "kind", kind, "id", id, "type", typ)

	return decision(id, retention.OutcomeWarned, ""), nil
}

func decision(id string, outcome retention.Outcome, reason string) runner.Decision {
	return runner.Decision{SubjectID: id, Outcome: outcome, Reason: reason}
}
