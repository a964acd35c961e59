package storage

import (
	"context"
	"time"

	"jobboard-hq/custodian/pkg/retention"
)

// Entity names a table touched by retention. The value is the table name.
type Entity string

const (
	EntityAccounts           Entity = "accounts"
	EntityAccountRoles       Entity = "account_roles"
	EntityUserSettings       Entity = "user_settings"
	EntityEmailSettings      Entity = "email_settings"
	EntityImages             Entity = "images"
	EntityJobs               Entity = "jobs"
	EntityEmailTemplates     Entity = "email_templates"
	EntityApplications       Entity = "applications"
	EntityCustomFieldAnswers Entity = "custom_field_answers"
	EntityDocuments          Entity = "documents"
	EntityDocumentDictionary Entity = "document_dictionary"
	EntityApplicationReviews Entity = "application_reviews"
	EntityInternalComments   Entity = "internal_comments"
	EntityRatings            Entity = "ratings"
	EntityInterviewees       Entity = "interviewees"
	EntityInterviewSlots     Entity = "interview_slots"
	EntityRetentionWarnings  Entity = "retention_warnings"
)

// AllEntities lists every table in dependency order, parents first.
var AllEntities = []Entity{
	EntityAccounts,
	EntityAccountRoles,
	EntityUserSettings,
	EntityEmailSettings,
	EntityImages,
	EntityJobs,
	EntityEmailTemplates,
	EntityApplications,
	EntityCustomFieldAnswers,
	EntityDocuments,
	EntityDocumentDictionary,
	EntityApplicationReviews,
	EntityInternalComments,
	EntityRatings,
	EntityInterviewees,
	EntityInterviewSlots,
	EntityRetentionWarnings,
}

// ownerColumns maps reassignable entities to their owning account column.
var ownerColumns = map[Entity]string{
	EntityJobs:               "supervising_professor_id",
	EntityEmailTemplates:     "created_by",
	EntityInternalComments:   "created_by",
	EntityApplicationReviews: "reviewed_by",
	EntityRatings:            "from_id",
	EntityImages:             "uploaded_by",
}

// PageRequest asks for up to Size ids strictly greater than After, ascending.
// Keyset pagination keeps pages stable while earlier pages are being deleted.
type PageRequest struct {
	After string
	Size  int
}

// ApplicationFilter selects applications by last modification.
type ApplicationFilter struct {
	// Before is an exclusive upper bound on last_modified_at.
	Before time.Time
	// NotBefore is an inclusive lower bound; zero means unbounded.
	NotBefore time.Time
	// States restricts the result to these states when non-empty.
	States []retention.ApplicationState
	// ExcludeAnonymized drops applications already scrubbed.
	ExcludeAnonymized bool
}

// AccountFilter selects accounts by last activity.
type AccountFilter struct {
	Before     time.Time
	NotBefore  time.Time
	ExcludeIDs []string
}

// Reader is the read side shared by stores and transactions.
type Reader interface {
	// FindApplicationPage returns application ids matching the filter.
	FindApplicationPage(ctx context.Context, filter ApplicationFilter, page PageRequest) ([]string, error)

	// FindAccountPage returns account ids matching the filter.
	FindAccountPage(ctx context.Context, filter AccountFilter, page PageRequest) ([]string, error)

	// GetAccount returns the account with its roles, or retention.ErrNotFound.
	GetAccount(ctx context.Context, id string) (*retention.Account, error)

	// GetApplication returns the application, or retention.ErrNotFound.
	GetApplication(ctx context.Context, id string) (*retention.Application, error)

	// ApplicationsByApplicant returns every application of the account ordered by id.
	ApplicationsByApplicant(ctx context.Context, accountID string) ([]*retention.Application, error)

	// DocumentsOfApplication returns the ids of documents referenced by the
	// application's dictionary entries.
	DocumentsOfApplication(ctx context.Context, applicationID string) ([]string, error)

	// GetWarning returns the warning bookkeeping row, or retention.ErrNotFound.
	GetWarning(ctx context.Context, kind retention.SubjectKind, subjectID string) (*retention.Warning, error)

	// Count returns the number of rows of an entity.
	Count(ctx context.Context, entity Entity) (int, error)

	// OwnerOf returns the owning account id of a reassignable row.
	OwnerOf(ctx context.Context, entity Entity, id string) (string, error)
}

// Writer holds the mutations available inside a transaction. Every method
// returns the number of affected rows where that is meaningful.
type Writer interface {
	// DeleteByApplication deletes rows of entity that belong to the application.
	DeleteByApplication(ctx context.Context, entity Entity, applicationID string) (int64, error)

	// DeleteByAccount deletes rows of entity that belong to the account.
	DeleteByAccount(ctx context.Context, entity Entity, accountID string) (int64, error)

	// DeleteUnreferencedDocuments deletes the given documents that are no
	// longer referenced by any dictionary entry.
	DeleteUnreferencedDocuments(ctx context.Context, documentIDs []string) (int64, error)

	// ReassignOwner moves ownership of entity rows from one account to another.
	ReassignOwner(ctx context.Context, entity Entity, from, to string) (int64, error)

	// CloseJobsOf forces every job supervised by the account to CLOSED.
	CloseJobsOf(ctx context.Context, accountID string) (int64, error)

	// AnonymizeApplication scrubs personal fields and repoints the applicant
	// to the sentinel account.
	AnonymizeApplication(ctx context.Context, applicationID, sentinelID string) error

	// DeleteApplication deletes the application row and reports whether it existed.
	DeleteApplication(ctx context.Context, applicationID string) (bool, error)

	// DeleteAccount deletes the account row and reports whether it existed.
	DeleteAccount(ctx context.Context, accountID string) (bool, error)

	// RecordWarning inserts or replaces the warning bookkeeping row.
	RecordWarning(ctx context.Context, warning *retention.Warning) error
}

// Tx is a unit of work. It is only valid inside Store.WithinTx.
type Tx interface {
	Reader
	Writer
}

// Store is a retention storage backend.
type Store interface {
	Reader

	// WithinTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// EnsureSentinel creates the deleted-user placeholder account if missing.
	EnsureSentinel(ctx context.Context, id string) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Backend returns the backend name used in errors and metrics.
	Backend() string

	// Close releases backend resources.
	Close() error
}

// Fixtures inserts records. It backs tests and demo seeding.
type Fixtures interface {
	InsertAccount(ctx context.Context, a *retention.Account) error
	InsertImage(ctx context.Context, img *retention.Image) error
	InsertJob(ctx context.Context, j *retention.Job) error
	InsertEmailTemplate(ctx context.Context, t *retention.EmailTemplate) error
	InsertUserSetting(ctx context.Context, s *retention.UserSetting) error
	InsertEmailSetting(ctx context.Context, s *retention.EmailSetting) error
	InsertApplication(ctx context.Context, a *retention.Application) error
	InsertCustomFieldAnswer(ctx context.Context, a *retention.CustomFieldAnswer) error
	InsertDocument(ctx context.Context, d *retention.Document) error
	InsertDictionaryEntry(ctx context.Context, e *retention.DocumentDictionaryEntry) error
	InsertReview(ctx context.Context, r *retention.ApplicationReview) error
	InsertComment(ctx context.Context, c *retention.InternalComment) error
	InsertRating(ctx context.Context, r *retention.Rating) error
	InsertInterviewee(ctx context.Context, i *retention.Interviewee) error
	InsertInterviewSlot(ctx context.Context, s *retention.InterviewSlot) error
}

// SeedableStore is a Store that also accepts fixtures.
type SeedableStore interface {
	Store
	Fixtures
}

// scrubbedText replaces personal free text on anonymized applications.
const scrubbedText = ""

// sentinelEmail is the placeholder address of the deleted-user account.
const sentinelEmail = "deleted-user@invalid"

// dbTime normalizes a timestamp to the precision and zone every backend stores.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
