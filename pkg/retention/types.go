package retention

import "time"

// Role is a role binding held by an account.
type Role string

const (
	RoleApplicant Role = "APPLICANT"
	RoleProfessor Role = "PROFESSOR"
	RoleEmployee  Role = "EMPLOYEE"
	RoleAdmin     Role = "ADMIN"
)

// ApplicationState is the lifecycle state of an application.
type ApplicationState string

const (
	StateSaved     ApplicationState = "SAVED"
	StateSent      ApplicationState = "SENT"
	StateInReview  ApplicationState = "IN_REVIEW"
	StateInterview ApplicationState = "INTERVIEW"
	StateRejected  ApplicationState = "REJECTED"
	StateAccepted  ApplicationState = "ACCEPTED"
)

// FinalizedStates are the terminal application states. Finalized applications
// are anonymized when their applicant is removed and are the only ones the
// application sweep deletes.
var FinalizedStates = []ApplicationState{StateRejected, StateAccepted}

// IsFinalized reports whether the state is terminal.
func (s ApplicationState) IsFinalized() bool {
	for _, f := range FinalizedStates {
		if s == f {
			return true
		}
	}
	return false
}

// JobState is the publication state of a job posting.
type JobState string

const (
	JobDraft     JobState = "DRAFT"
	JobPublished JobState = "PUBLISHED"
	JobClosed    JobState = "CLOSED"
)

// ImageType distinguishes uploaded images.
type ImageType string

const (
	ImageProfile          ImageType = "PROFILE"
	ImageJobBanner        ImageType = "JOB_BANNER"
	ImageDefaultJobBanner ImageType = "DEFAULT_JOB_BANNER"
)

// Account is a user identity with role bindings and an activity timestamp.
type Account struct {
	ID                string
	Email             string
	FirstName         string
	LastName          string
	PreferredLanguage string
	// ResearchGroupID is empty when the account has no research group affiliation.
	ResearchGroupID string
	Roles           []Role
	LastActivityAt  time.Time
	CreatedAt       time.Time
}

// HasRole reports whether the account holds the role.
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// FullName returns the display name of the account.
func (a *Account) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// Application is a submission by one applicant to one job.
type Application struct {
	ID             string
	ApplicantID    string
	JobID          string
	State          ApplicationState
	Motivation     string
	SpecialSkills  string
	Anonymized     bool
	LastModifiedAt time.Time
	CreatedAt      time.Time
}

// Job is a posting supervised by a professor.
type Job struct {
	ID                     string
	SupervisingProfessorID string
	Title                  string
	State                  JobState
	ImageID                string
}

// Document is a content-addressed file. ID is the content hash.
type Document struct {
	ID       string
	MimeType string
	Size     int64
}

// DocumentDictionaryEntry links a document to an application.
type DocumentDictionaryEntry struct {
	ID            string
	ApplicationID string
	DocumentID    string
	DocumentType  string
}

// Image is an uploaded picture.
type Image struct {
	ID         string
	UploadedBy string
	Type       ImageType
}

// EmailTemplate is an email template authored by a staff account.
type EmailTemplate struct {
	ID              string
	CreatedBy       string
	ResearchGroupID string
	Name            string
}

// UserSetting is a key/value preference of an account.
type UserSetting struct {
	AccountID string
	Key       string
	Value     string
}

// EmailSetting toggles one notification type for an account.
type EmailSetting struct {
	AccountID        string
	NotificationType string
	Enabled          bool
}

// CustomFieldAnswer is an applicant's answer to a job-specific question.
type CustomFieldAnswer struct {
	ID            string
	ApplicationID string
	Answer        string
}

// ApplicationReview is the staff decision record of an application.
type ApplicationReview struct {
	ID            string
	ApplicationID string
	ReviewedBy    string
	Reason        string
}

// InternalComment is a staff comment on an application.
type InternalComment struct {
	ID            string
	ApplicationID string
	CreatedBy     string
	Message       string
}

// Rating is a staff rating of an application.
type Rating struct {
	ID            string
	ApplicationID string
	FromID        string
	Value         int
}

// Interviewee is the interview participation of an application.
type Interviewee struct {
	ID            string
	ApplicationID string
}

// InterviewSlot is a bookable interview time, optionally booked by an interviewee.
type InterviewSlot struct {
	ID            string
	JobID         string
	IntervieweeID string
	StartsAt      time.Time
}

// SubjectKind names the record class a retention decision applies to.
type SubjectKind string

const (
	SubjectApplication SubjectKind = "application"
	SubjectAccount     SubjectKind = "account"
)

// Outcome is the result class of one processed candidate.
type Outcome string

const (
	OutcomeDeleted       Outcome = "deleted"
	OutcomeAnonymized    Outcome = "anonymized"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeAlreadyAbsent Outcome = "already_absent"
	OutcomePreviewed     Outcome = "previewed"
	OutcomeWarned        Outcome = "warned"
	OutcomeAlreadyWarned Outcome = "already_warned"
	OutcomeViolation     Outcome = "violation"
	OutcomeFailed        Outcome = "failed"
)

// Warning is the bookkeeping row of a sent pre-deletion notification.
// ActivityAt is the activity timestamp the warning was issued for; a newer
// activity re-arms the warning.
type Warning struct {
	Kind             SubjectKind
	SubjectID        string
	NotificationType string
	ActivityAt       time.Time
	WarnedAt         time.Time
}

// Covers reports whether the warning was issued for the given activity timestamp.
func (w *Warning) Covers(activity time.Time) bool {
	return w != nil && w.ActivityAt.Equal(activity.UTC().Truncate(time.Microsecond))
}
