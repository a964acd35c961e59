// Package disposition decides what retention does with a candidate.
//
// A Disposition is a closed set of variants. Callers switch on the concrete
// type; no other package can add a variant.
package disposition

import (
	"strings"

	"jobboard-hq/custodian/pkg/retention"
)

// Disposition is one action applied to a candidate.
type Disposition interface {
	// Name returns a stable identifier used in reports and logs.
	Name() string
	disposition()
}

// Skip leaves the candidate untouched.
type Skip struct {
	Reason string
}

// DeleteApplicantData removes an applicant's data: finalized applications are
// anonymized in place, all others are deleted with their dependents.
type DeleteApplicantData struct{}

// AnonymizeStaffData reassigns everything a staff account owns to the
// sentinel account and closes its jobs.
type AnonymizeStaffData struct {
	Sentinel string
}

// DeleteApplication deletes one application with its dependents.
type DeleteApplication struct{}

func (Skip) Name() string                { return "skip" }
func (DeleteApplicantData) Name() string { return "delete_applicant_data" }
func (AnonymizeStaffData) Name() string  { return "anonymize_staff_data" }
func (DeleteApplication) Name() string   { return "delete_application" }

func (Skip) disposition()                {}
func (DeleteApplicantData) disposition() {}
func (AnonymizeStaffData) disposition()  {}
func (DeleteApplication) disposition()   {}

// Skip reasons.
const (
	ReasonSentinel     = "sentinel"
	ReasonAdmin        = "admin"
	ReasonRoleless     = "roleless"
	ReasonNotFinalized = "not_finalized"
)

// Plan is the resolved list of dispositions for one candidate, in execution
// order. A skipped plan holds exactly one Skip.
type Plan struct {
	Kind      retention.SubjectKind
	SubjectID string
	Steps     []Disposition
}

// Skipped reports whether the plan leaves the candidate untouched.
func (p Plan) Skipped() bool {
	if len(p.Steps) == 0 {
		return true
	}
	_, ok := p.Steps[0].(Skip)
	return ok
}

// SkipReason returns the reason of a skipped plan.
func (p Plan) SkipReason() string {
	if len(p.Steps) == 0 {
		return ""
	}
	if s, ok := p.Steps[0].(Skip); ok {
		return s.Reason
	}
	return ""
}

// String joins the step names with "+".
func (p Plan) String() string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func skip(kind retention.SubjectKind, id, reason string) Plan {
	return Plan{Kind: kind, SubjectID: id, Steps: []Disposition{Skip{Reason: reason}}}
}

// ResolveAccount decides the plan for an inactive account from its roles.
// The applicant branch is listed before the staff branch; both run before
// the account row is deleted. Applications outlive the APPLICANT role, so
// the executor adds the applicant branch with WithApplicantHistory when the
// account still owns any.
func ResolveAccount(a *retention.Account, sentinelID string) Plan {
	switch {
	case a.ID == sentinelID:
		return skip(retention.SubjectAccount, a.ID, ReasonSentinel)
	case a.HasRole(retention.RoleAdmin):
		return skip(retention.SubjectAccount, a.ID, ReasonAdmin)
	case len(a.Roles) == 0 && a.ResearchGroupID == "":
		return skip(retention.SubjectAccount, a.ID, ReasonRoleless)
	}

	plan := Plan{Kind: retention.SubjectAccount, SubjectID: a.ID}
	if a.HasRole(retention.RoleApplicant) {
		plan.Steps = append(plan.Steps, DeleteApplicantData{})
	}
	if a.HasRole(retention.RoleProfessor) || a.HasRole(retention.RoleEmployee) || len(a.Roles) == 0 {
		plan.Steps = append(plan.Steps, AnonymizeStaffData{Sentinel: sentinelID})
	}
	return plan
}

// HasApplicantBranch reports whether the plan removes applicant data.
func (p Plan) HasApplicantBranch() bool {
	for _, s := range p.Steps {
		if _, ok := s.(DeleteApplicantData); ok {
			return true
		}
	}
	return false
}

// WithApplicantHistory returns the plan with the applicant branch in front.
// Skipped plans, application plans and plans that already carry the branch
// are returned unchanged.
func (p Plan) WithApplicantHistory() Plan {
	if p.Skipped() || p.Kind != retention.SubjectAccount || p.HasApplicantBranch() {
		return p
	}
	steps := make([]Disposition, 0, len(p.Steps)+1)
	steps = append(steps, DeleteApplicantData{})
	steps = append(steps, p.Steps...)
	return Plan{Kind: p.Kind, SubjectID: p.SubjectID, Steps: steps}
}

// ResolveApplication decides the plan for an expired application.
func ResolveApplication(app *retention.Application) Plan {
	if !app.State.IsFinalized() {
		return skip(retention.SubjectApplication, app.ID, ReasonNotFinalized)
	}
	return Plan{
		Kind:      retention.SubjectApplication,
		SubjectID: app.ID,
		Steps:     []Disposition{DeleteApplication{}},
	}
}

// VerifyAccount re-checks a destructive plan against the current account and
// returns a DispositionViolationError if it would touch protected data.
func (p Plan) VerifyAccount(a *retention.Account, sentinelID string) error {
	if p.Skipped() {
		return nil
	}
	switch {
	case a.ID != p.SubjectID:
		return retention.NewDispositionViolation(retention.SubjectAccount, a.ID, "plan resolved for "+p.SubjectID)
	case a.ID == sentinelID:
		return retention.NewDispositionViolation(retention.SubjectAccount, a.ID, "sentinel account is protected")
	case a.HasRole(retention.RoleAdmin):
		return retention.NewDispositionViolation(retention.SubjectAccount, a.ID, "admin account is protected")
	case len(a.Roles) == 0 && a.ResearchGroupID == "":
		return retention.NewDispositionViolation(retention.SubjectAccount, a.ID, "account has no resolvable disposition")
	}
	for _, step := range p.Steps {
		switch step.(type) {
		case DeleteApplicantData, AnonymizeStaffData:
		default:
			return retention.NewDispositionViolation(retention.SubjectAccount, a.ID, step.Name()+" does not apply to accounts")
		}
	}
	return nil
}

// VerifyApplication re-checks a destructive plan against the current application.
func (p Plan) VerifyApplication(app *retention.Application) error {
	if p.Skipped() {
		return nil
	}
	if app.ID != p.SubjectID {
		return retention.NewDispositionViolation(retention.SubjectApplication, app.ID, "plan resolved for "+p.SubjectID)
	}
	if !app.State.IsFinalized() {
		return retention.NewDispositionViolation(retention.SubjectApplication, app.ID,
			"application in state "+string(app.State)+" is not finalized")
	}
	for _, step := range p.Steps {
		if _, ok := step.(DeleteApplication); !ok {
			return retention.NewDispositionViolation(retention.SubjectApplication, app.ID, step.Name()+" does not apply to applications")
		}
	}
	return nil
}
