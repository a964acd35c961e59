package retention

import (
	"fmt"
	"time"
)

// Policy is the retention configuration in effect for one sweep invocation.
// It is built fresh from configuration on every run and never mutated.
type Policy struct {
	Enabled bool
	DryRun  bool

	// ApplicationRetentionDays is the age (by last modification) after which
	// finalized applications are deleted.
	ApplicationRetentionDays int

	// AccountRetentionDays is the inactivity period after which accounts are
	// deleted or anonymized.
	AccountRetentionDays int

	BatchSize         int
	MaxRuntimeMinutes int

	// WarningWindowDays is how many days before deletion a warning is sent.
	WarningWindowDays int

	// SentinelID is the identifier of the deleted-user placeholder account.
	SentinelID string
}

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t lies in [From, To).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// String implements fmt.Stringer.
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.From.UTC().Format(time.RFC3339), w.To.UTC().Format(time.RFC3339))
}

// ApplicationCutoff returns the deletion cutoff for applications. Records last
// modified strictly before the cutoff are eligible.
func (p Policy) ApplicationCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.ApplicationRetentionDays)
}

// AccountCutoff returns the deletion cutoff for accounts.
func (p Policy) AccountCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.AccountRetentionDays)
}

// ApplicationWarningWindow returns the activity range of applications that are
// due for deletion within the warning window but not yet eligible.
func (p Policy) ApplicationWarningWindow(now time.Time) Window {
	cutoff := p.ApplicationCutoff(now)
	return Window{From: cutoff, To: cutoff.AddDate(0, 0, p.WarningWindowDays)}
}

// AccountWarningWindow returns the activity range of accounts that are due
// for deletion within the warning window but not yet eligible.
func (p Policy) AccountWarningWindow(now time.Time) Window {
	cutoff := p.AccountCutoff(now)
	return Window{From: cutoff, To: cutoff.AddDate(0, 0, p.WarningWindowDays)}
}

// MaxRuntime returns the cooperative runtime budget of a sweep.
func (p Policy) MaxRuntime() time.Duration {
	return time.Duration(p.MaxRuntimeMinutes) * time.Minute
}

// DeletionDate returns the day a record with the given activity timestamp
// becomes eligible for deletion under the retention period.
func DeletionDate(activity time.Time, retentionDays int) time.Time {
	return activity.AddDate(0, 0, retentionDays)
}

// Validate checks the invariants the sweeps rely on.
func (p Policy) Validate() error {
	switch {
	case p.ApplicationRetentionDays <= 0:
		return fmt.Errorf("application retention days must be positive, got %d", p.ApplicationRetentionDays)
	case p.AccountRetentionDays <= 0:
		return fmt.Errorf("account retention days must be positive, got %d", p.AccountRetentionDays)
	case p.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", p.BatchSize)
	case p.MaxRuntimeMinutes <= 0:
		return fmt.Errorf("max runtime minutes must be positive, got %d", p.MaxRuntimeMinutes)
	case p.WarningWindowDays <= 0:
		return fmt.Errorf("warning window days must be positive, got %d", p.WarningWindowDays)
	case p.WarningWindowDays >= p.ApplicationRetentionDays:
		return fmt.Errorf("warning window (%d days) must be shorter than application retention (%d days)",
			p.WarningWindowDays, p.ApplicationRetentionDays)
	case p.WarningWindowDays >= p.AccountRetentionDays:
		return fmt.Errorf("warning window (%d days) must be shorter than account retention (%d days)",
			p.WarningWindowDays, p.AccountRetentionDays)
	case p.SentinelID == "":
		return fmt.Errorf("sentinel account id is required")
	}
	return nil
}
