// Package cascade removes or anonymizes a candidate together with every
// dependent row, in dependency order, inside one transaction.
package cascade

import (
	"fmt"

	"jobboard-hq/custodian/pkg/retention/storage"
)

// Action is what a step does to its entity.
type Action string

const (
	// DeleteDependents deletes the rows of the entity owned by the subject.
	DeleteDependents Action = "delete"
	// DeleteUnreferenced deletes the subject's documents that no dictionary
	// entry references any more.
	DeleteUnreferenced Action = "delete_unreferenced"
	// Reassign moves ownership of the entity's rows to the sentinel account.
	Reassign Action = "reassign"
	// CloseJobs forces the subject's jobs to CLOSED.
	CloseJobs Action = "close"
	// AnonymizeRow scrubs the subject row and repoints it to the sentinel.
	AnonymizeRow Action = "anonymize"
	// DeleteRow deletes the subject row itself.
	DeleteRow Action = "delete_row"
)

// Step is one entry of a cascade.
type Step struct {
	Entity storage.Entity
	Action Action
}

// String implements fmt.Stringer.
func (s Step) String() string {
	return string(s.Action) + ":" + string(s.Entity)
}

// ApplicationDeletion removes an application and all of its dependents.
// Dictionary entries go before documents so that only documents no other
// application references are removed; slots go before their interviewees.
var ApplicationDeletion = []Step{
	{Entity: storage.EntityCustomFieldAnswers, Action: DeleteDependents},
	{Entity: storage.EntityDocumentDictionary, Action: DeleteDependents},
	{Entity: storage.EntityDocuments, Action: DeleteUnreferenced},
	{Entity: storage.EntityApplicationReviews, Action: DeleteDependents},
	{Entity: storage.EntityInternalComments, Action: DeleteDependents},
	{Entity: storage.EntityRatings, Action: DeleteDependents},
	{Entity: storage.EntityInterviewSlots, Action: DeleteDependents},
	{Entity: storage.EntityInterviewees, Action: DeleteDependents},
	{Entity: storage.EntityRetentionWarnings, Action: DeleteDependents},
	{Entity: storage.EntityApplications, Action: DeleteRow},
}

// ApplicationAnonymization strips an applicant's personal content from a
// finalized application and hands the row to the sentinel account. Reviews,
// comments and ratings stay for the research group's records.
var ApplicationAnonymization = []Step{
	{Entity: storage.EntityCustomFieldAnswers, Action: DeleteDependents},
	{Entity: storage.EntityDocumentDictionary, Action: DeleteDependents},
	{Entity: storage.EntityDocuments, Action: DeleteUnreferenced},
	{Entity: storage.EntityRetentionWarnings, Action: DeleteDependents},
	{Entity: storage.EntityApplications, Action: AnonymizeRow},
}

// StaffAnonymization hands everything a professor or employee owns to the
// sentinel account. Jobs are closed before they lose their supervisor.
var StaffAnonymization = []Step{
	{Entity: storage.EntityJobs, Action: CloseJobs},
	{Entity: storage.EntityJobs, Action: Reassign},
	{Entity: storage.EntityEmailTemplates, Action: Reassign},
	{Entity: storage.EntityInternalComments, Action: Reassign},
	{Entity: storage.EntityApplicationReviews, Action: Reassign},
	{Entity: storage.EntityRatings, Action: Reassign},
	{Entity: storage.EntityImages, Action: Reassign},
}

// AccountDeletion removes an account's own rows and then the account.
// Profile pictures and unused uploads are deleted; uploads a job still shows
// go to the sentinel account, whatever the account's roles.
var AccountDeletion = []Step{
	{Entity: storage.EntityUserSettings, Action: DeleteDependents},
	{Entity: storage.EntityEmailSettings, Action: DeleteDependents},
	{Entity: storage.EntityImages, Action: DeleteDependents},
	{Entity: storage.EntityImages, Action: Reassign},
	{Entity: storage.EntityAccountRoles, Action: DeleteDependents},
	{Entity: storage.EntityRetentionWarnings, Action: DeleteDependents},
	{Entity: storage.EntityAccounts, Action: DeleteRow},
}

// precedes lists, per entity, the entities whose cleanup must come first.
var precedes = map[storage.Entity][]storage.Entity{
	storage.EntityDocuments:    {storage.EntityDocumentDictionary},
	storage.EntityInterviewees: {storage.EntityInterviewSlots},
	storage.EntityApplications: {
		storage.EntityCustomFieldAnswers,
		storage.EntityDocumentDictionary,
		storage.EntityApplicationReviews,
		storage.EntityInternalComments,
		storage.EntityRatings,
		storage.EntityInterviewees,
	},
	storage.EntityAccounts: {
		storage.EntityUserSettings,
		storage.EntityEmailSettings,
		storage.EntityImages,
		storage.EntityAccountRoles,
	},
}

// Validate checks that a step list respects referential order: every entity
// that references another is handled before it, and a terminal row step, if
// any, comes last.
func Validate(steps []Step) error {
	pos := make(map[storage.Entity]int, len(steps))
	for i, s := range steps {
		if _, seen := pos[s.Entity]; !seen {
			pos[s.Entity] = i
		}
		if (s.Action == DeleteRow || s.Action == AnonymizeRow) && i != len(steps)-1 {
			return fmt.Errorf("step %d (%s) ends the subject but is not last", i, s)
		}
	}

	for i, s := range steps {
		if s.Action == Reassign || s.Action == CloseJobs {
			continue
		}
		for _, child := range precedes[s.Entity] {
			if s.Action == AnonymizeRow && child != storage.EntityCustomFieldAnswers && child != storage.EntityDocumentDictionary {
				continue
			}
			j, ok := pos[child]
			if !ok {
				return fmt.Errorf("step %d (%s) requires %s to be handled first, but it is missing", i, s, child)
			}
			if j > i {
				return fmt.Errorf("step %d (%s) runs before %s", i, s, child)
			}
		}
	}
	return nil
}
