package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"jobboard-hq/custodian/pkg/retention"
)

const memoryBackend = "memory"

// FaultFunc is consulted before every write of the memory backend. A non-nil
// return fails the write with that error.
type FaultFunc func(op string, id string) error

// MemoryStore implements Store with typed maps. A transaction works on a deep
// copy of the dataset that replaces the live one on commit. Writes enforce the
// same referential checks as the SQL schema.
type MemoryStore struct {
	mu      sync.RWMutex
	data    *dataset
	fault   FaultFunc
	commits int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newDataset()}
}

// FailWrites installs a fault hook; nil removes it.
func (s *MemoryStore) FailWrites(fn FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = fn
}

// Commits returns the number of committed transactions.
func (s *MemoryStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// WithinTx implements Store.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	work.fault = s.fault
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	work.fault = nil
	s.data = work
	s.commits++
	return nil
}

// EnsureSentinel implements Store.
func (s *MemoryStore) EnsureSentinel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.accounts[id]; ok {
		return nil
	}
	s.data.accounts[id] = &retention.Account{
		ID:        id,
		Email:     sentinelEmail,
		FirstName: "Deleted",
		LastName:  "User",
		CreatedAt: dbTime(time.Now()),
	}
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Backend implements Store.
func (s *MemoryStore) Backend() string { return memoryBackend }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) FindApplicationPage(ctx context.Context, filter ApplicationFilter, page PageRequest) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FindApplicationPage(ctx, filter, page)
}

func (s *MemoryStore) FindAccountPage(ctx context.Context, filter AccountFilter, page PageRequest) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.FindAccountPage(ctx, filter, page)
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*retention.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetAccount(ctx, id)
}

func (s *MemoryStore) GetApplication(ctx context.Context, id string) (*retention.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetApplication(ctx, id)
}

func (s *MemoryStore) ApplicationsByApplicant(ctx context.Context, accountID string) ([]*retention.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ApplicationsByApplicant(ctx, accountID)
}

func (s *MemoryStore) DocumentsOfApplication(ctx context.Context, applicationID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.DocumentsOfApplication(ctx, applicationID)
}

func (s *MemoryStore) GetWarning(ctx context.Context, kind retention.SubjectKind, subjectID string) (*retention.Warning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.GetWarning(ctx, kind, subjectID)
}

func (s *MemoryStore) Count(ctx context.Context, entity Entity) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Count(ctx, entity)
}

func (s *MemoryStore) OwnerOf(ctx context.Context, entity Entity, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.OwnerOf(ctx, entity, id)
}

// GetJob returns a copy of the job. It is used by tests.
func (s *MemoryStore) GetJob(id string) (*retention.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.data.jobs[id]
	if !ok {
		return nil, retention.ErrNotFound
	}
	c := *j
	return &c, nil
}

type warningKey struct {
	kind retention.SubjectKind
	id   string
}

// dataset holds every table. It doubles as the transaction handle.
type dataset struct {
	accounts      map[string]*retention.Account
	userSettings  []retention.UserSetting
	emailSettings []retention.EmailSetting
	images        map[string]*retention.Image
	jobs          map[string]*retention.Job
	templates     map[string]*retention.EmailTemplate
	applications  map[string]*retention.Application
	answers       map[string]*retention.CustomFieldAnswer
	documents     map[string]*retention.Document
	dictionary    map[string]*retention.DocumentDictionaryEntry
	reviews       map[string]*retention.ApplicationReview
	comments      map[string]*retention.InternalComment
	ratings       map[string]*retention.Rating
	interviewees  map[string]*retention.Interviewee
	slots         map[string]*retention.InterviewSlot
	warnings      map[warningKey]*retention.Warning

	fault FaultFunc
}

func newDataset() *dataset {
	return &dataset{
		accounts:     make(map[string]*retention.Account),
		images:       make(map[string]*retention.Image),
		jobs:         make(map[string]*retention.Job),
		templates:    make(map[string]*retention.EmailTemplate),
		applications: make(map[string]*retention.Application),
		answers:      make(map[string]*retention.CustomFieldAnswer),
		documents:    make(map[string]*retention.Document),
		dictionary:   make(map[string]*retention.DocumentDictionaryEntry),
		reviews:      make(map[string]*retention.ApplicationReview),
		comments:     make(map[string]*retention.InternalComment),
		ratings:      make(map[string]*retention.Rating),
		interviewees: make(map[string]*retention.Interviewee),
		slots:        make(map[string]*retention.InterviewSlot),
		warnings:     make(map[warningKey]*retention.Warning),
	}
}

func cloneMap[K comparable, V any](m map[K]*V) map[K]*V {
	out := make(map[K]*V, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		accounts:      make(map[string]*retention.Account, len(d.accounts)),
		userSettings:  append([]retention.UserSetting(nil), d.userSettings...),
		emailSettings: append([]retention.EmailSetting(nil), d.emailSettings...),
		images:        cloneMap(d.images),
		jobs:          cloneMap(d.jobs),
		templates:     cloneMap(d.templates),
		applications:  cloneMap(d.applications),
		answers:       cloneMap(d.answers),
		documents:     cloneMap(d.documents),
		dictionary:    cloneMap(d.dictionary),
		reviews:       cloneMap(d.reviews),
		comments:      cloneMap(d.comments),
		ratings:       cloneMap(d.ratings),
		interviewees:  cloneMap(d.interviewees),
		slots:         cloneMap(d.slots),
		warnings:      cloneMap(d.warnings),
	}
	for id, a := range d.accounts {
		c.accounts[id] = copyAccount(a)
	}
	return c
}

func copyAccount(a *retention.Account) *retention.Account {
	c := *a
	c.Roles = append([]retention.Role(nil), a.Roles...)
	return &c
}

func (d *dataset) checkFault(op, id string) error {
	if d.fault == nil {
		return nil
	}
	if err := d.fault(op, id); err != nil {
		return retention.NewStorageError(memoryBackend, op, err)
	}
	return nil
}

func fkViolation(table, id, child string) error {
	return retention.NewStorageError(memoryBackend, "delete_"+table,
		fmt.Errorf("FOREIGN KEY constraint failed: %s %s is still referenced by %s", table, id, child))
}

func sortedPage(ids []string, page PageRequest) []string {
	sort.Strings(ids)
	if page.Size > 0 && len(ids) > page.Size {
		ids = ids[:page.Size]
	}
	return ids
}

func (d *dataset) FindApplicationPage(ctx context.Context, filter ApplicationFilter, page PageRequest) ([]string, error) {
	var ids []string
	for id, a := range d.applications {
		if page.After != "" && id <= page.After {
			continue
		}
		if !a.LastModifiedAt.Before(filter.Before) {
			continue
		}
		if !filter.NotBefore.IsZero() && a.LastModifiedAt.Before(filter.NotBefore) {
			continue
		}
		if filter.ExcludeAnonymized && a.Anonymized {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, a.State) {
			continue
		}
		ids = append(ids, id)
	}
	return sortedPage(ids, page), nil
}

func containsState(states []retention.ApplicationState, s retention.ApplicationState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

func (d *dataset) FindAccountPage(ctx context.Context, filter AccountFilter, page PageRequest) ([]string, error) {
	excluded := make(map[string]bool, len(filter.ExcludeIDs))
	for _, id := range filter.ExcludeIDs {
		excluded[id] = true
	}

	var ids []string
	for id, a := range d.accounts {
		if excluded[id] || (page.After != "" && id <= page.After) {
			continue
		}
		if !a.LastActivityAt.Before(filter.Before) {
			continue
		}
		if !filter.NotBefore.IsZero() && a.LastActivityAt.Before(filter.NotBefore) {
			continue
		}
		ids = append(ids, id)
	}
	return sortedPage(ids, page), nil
}

func (d *dataset) GetAccount(ctx context.Context, id string) (*retention.Account, error) {
	a, ok := d.accounts[id]
	if !ok {
		return nil, retention.ErrNotFound
	}
	return copyAccount(a), nil
}

func (d *dataset) GetApplication(ctx context.Context, id string) (*retention.Application, error) {
	a, ok := d.applications[id]
	if !ok {
		return nil, retention.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (d *dataset) ApplicationsByApplicant(ctx context.Context, accountID string) ([]*retention.Application, error) {
	var apps []*retention.Application
	for _, a := range d.applications {
		if a.ApplicantID == accountID {
			c := *a
			apps = append(apps, &c)
		}
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].ID < apps[j].ID })
	return apps, nil
}

func (d *dataset) DocumentsOfApplication(ctx context.Context, applicationID string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range d.dictionary {
		if e.ApplicationID == applicationID && !seen[e.DocumentID] {
			seen[e.DocumentID] = true
			ids = append(ids, e.DocumentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (d *dataset) GetWarning(ctx context.Context, kind retention.SubjectKind, subjectID string) (*retention.Warning, error) {
	w, ok := d.warnings[warningKey{kind, subjectID}]
	if !ok {
		return nil, retention.ErrNotFound
	}
	c := *w
	return &c, nil
}

func (d *dataset) Count(ctx context.Context, entity Entity) (int, error) {
	switch entity {
	case EntityAccounts:
		return len(d.accounts), nil
	case EntityAccountRoles:
		n := 0
		for _, a := range d.accounts {
			n += len(a.Roles)
		}
		return n, nil
	case EntityUserSettings:
		return len(d.userSettings), nil
	case EntityEmailSettings:
		return len(d.emailSettings), nil
	case EntityImages:
		return len(d.images), nil
	case EntityJobs:
		return len(d.jobs), nil
	case EntityEmailTemplates:
		return len(d.templates), nil
	case EntityApplications:
		return len(d.applications), nil
	case EntityCustomFieldAnswers:
		return len(d.answers), nil
	case EntityDocuments:
		return len(d.documents), nil
	case EntityDocumentDictionary:
		return len(d.dictionary), nil
	case EntityApplicationReviews:
		return len(d.reviews), nil
	case EntityInternalComments:
		return len(d.comments), nil
	case EntityRatings:
		return len(d.ratings), nil
	case EntityInterviewees:
		return len(d.interviewees), nil
	case EntityInterviewSlots:
		return len(d.slots), nil
	case EntityRetentionWarnings:
		return len(d.warnings), nil
	}
	return 0, retention.NewStorageError(memoryBackend, "count", fmt.Errorf("unknown entity %q", entity))
}

func (d *dataset) OwnerOf(ctx context.Context, entity Entity, id string) (string, error) {
	var owner string
	var ok bool
	switch entity {
	case EntityJobs:
		var j *retention.Job
		if j, ok = d.jobs[id]; ok {
			owner = j.SupervisingProfessorID
		}
	case EntityEmailTemplates:
		var t *retention.EmailTemplate
		if t, ok = d.templates[id]; ok {
			owner = t.CreatedBy
		}
	case EntityInternalComments:
		var c *retention.InternalComment
		if c, ok = d.comments[id]; ok {
			owner = c.CreatedBy
		}
	case EntityApplicationReviews:
		var r *retention.ApplicationReview
		if r, ok = d.reviews[id]; ok {
			owner = r.ReviewedBy
		}
	case EntityRatings:
		var r *retention.Rating
		if r, ok = d.ratings[id]; ok {
			owner = r.FromID
		}
	case EntityImages:
		var img *retention.Image
		if img, ok = d.images[id]; ok {
			owner = img.UploadedBy
		}
	default:
		return "", retention.NewStorageError(memoryBackend, "owner_of", fmt.Errorf("entity %q has no owner", entity))
	}
	if !ok {
		return "", retention.ErrNotFound
	}
	return owner, nil
}

func (d *dataset) DeleteByApplication(ctx context.Context, entity Entity, applicationID string) (int64, error) {
	if err := d.checkFault(string(entity), applicationID); err != nil {
		return 0, err
	}

	var n int64
	switch entity {
	case EntityCustomFieldAnswers:
		n = deleteWhere(d.answers, func(a *retention.CustomFieldAnswer) bool { return a.ApplicationID == applicationID })
	case EntityDocumentDictionary:
		n = deleteWhere(d.dictionary, func(e *retention.DocumentDictionaryEntry) bool { return e.ApplicationID == applicationID })
	case EntityApplicationReviews:
		n = deleteWhere(d.reviews, func(r *retention.ApplicationReview) bool { return r.ApplicationID == applicationID })
	case EntityInternalComments:
		n = deleteWhere(d.comments, func(c *retention.InternalComment) bool { return c.ApplicationID == applicationID })
	case EntityRatings:
		n = deleteWhere(d.ratings, func(r *retention.Rating) bool { return r.ApplicationID == applicationID })
	case EntityInterviewSlots:
		n = deleteWhere(d.slots, func(s *retention.InterviewSlot) bool {
			iv, ok := d.interviewees[s.IntervieweeID]
			return ok && iv.ApplicationID == applicationID
		})
	case EntityInterviewees:
		for id, iv := range d.interviewees {
			if iv.ApplicationID != applicationID {
				continue
			}
			for _, s := range d.slots {
				if s.IntervieweeID == id {
					return 0, fkViolation("interviewees", id, "interview_slots")
				}
			}
		}
		n = deleteWhere(d.interviewees, func(iv *retention.Interviewee) bool { return iv.ApplicationID == applicationID })
	case EntityRetentionWarnings:
		if _, ok := d.warnings[warningKey{retention.SubjectApplication, applicationID}]; ok {
			delete(d.warnings, warningKey{retention.SubjectApplication, applicationID})
			n = 1
		}
	default:
		return 0, retention.NewStorageError(memoryBackend, "delete_by_application",
			fmt.Errorf("entity %q is not owned by an application", entity))
	}
	return n, nil
}

func (d *dataset) DeleteByAccount(ctx context.Context, entity Entity, accountID string) (int64, error) {
	if err := d.checkFault(string(entity), accountID); err != nil {
		return 0, err
	}

	var n int64
	switch entity {
	case EntityUserSettings:
		kept := d.userSettings[:0]
		for _, s := range d.userSettings {
			if s.AccountID == accountID {
				n++
				continue
			}
			kept = append(kept, s)
		}
		d.userSettings = kept
	case EntityEmailSettings:
		kept := d.emailSettings[:0]
		for _, s := range d.emailSettings {
			if s.AccountID == accountID {
				n++
				continue
			}
			kept = append(kept, s)
		}
		d.emailSettings = kept
	case EntityImages:
		n = deleteWhere(d.images, func(img *retention.Image) bool {
			if img.UploadedBy != accountID {
				return false
			}
			return img.Type == retention.ImageProfile || !d.imageReferenced(img.ID)
		})
		for _, j := range d.jobs {
			if j.ImageID != "" {
				if _, ok := d.images[j.ImageID]; !ok {
					return 0, fkViolation("images", j.ImageID, "jobs")
				}
			}
		}
	case EntityAccountRoles:
		if a, ok := d.accounts[accountID]; ok {
			n = int64(len(a.Roles))
			a.Roles = nil
		}
	case EntityRetentionWarnings:
		if _, ok := d.warnings[warningKey{retention.SubjectAccount, accountID}]; ok {
			delete(d.warnings, warningKey{retention.SubjectAccount, accountID})
			n = 1
		}
	default:
		return 0, retention.NewStorageError(memoryBackend, "delete_by_account",
			fmt.Errorf("entity %q is not owned by an account", entity))
	}
	return n, nil
}

func (d *dataset) imageReferenced(imageID string) bool {
	for _, j := range d.jobs {
		if j.ImageID == imageID {
			return true
		}
	}
	return false
}

func (d *dataset) DeleteUnreferencedDocuments(ctx context.Context, documentIDs []string) (int64, error) {
	if err := d.checkFault(string(EntityDocuments), ""); err != nil {
		return 0, err
	}

	referenced := make(map[string]bool)
	for _, e := range d.dictionary {
		referenced[e.DocumentID] = true
	}

	var n int64
	for _, id := range documentIDs {
		if referenced[id] {
			continue
		}
		if _, ok := d.documents[id]; ok {
			delete(d.documents, id)
			n++
		}
	}
	return n, nil
}

func (d *dataset) ReassignOwner(ctx context.Context, entity Entity, from, to string) (int64, error) {
	if err := d.checkFault("reassign_"+string(entity), from); err != nil {
		return 0, err
	}
	if _, ok := d.accounts[to]; !ok {
		return 0, retention.NewStorageError(memoryBackend, "reassign_"+string(entity),
			fmt.Errorf("FOREIGN KEY constraint failed: account %s does not exist", to))
	}

	var n int64
	switch entity {
	case EntityJobs:
		for _, j := range d.jobs {
			if j.SupervisingProfessorID == from {
				j.SupervisingProfessorID = to
				n++
			}
		}
	case EntityEmailTemplates:
		for _, t := range d.templates {
			if t.CreatedBy == from {
				t.CreatedBy = to
				n++
			}
		}
	case EntityInternalComments:
		for _, c := range d.comments {
			if c.CreatedBy == from {
				c.CreatedBy = to
				n++
			}
		}
	case EntityApplicationReviews:
		for _, r := range d.reviews {
			if r.ReviewedBy == from {
				r.ReviewedBy = to
				n++
			}
		}
	case EntityRatings:
		for _, r := range d.ratings {
			if r.FromID == from {
				r.FromID = to
				n++
			}
		}
	case EntityImages:
		for _, img := range d.images {
			if img.UploadedBy == from && img.Type != retention.ImageProfile {
				img.UploadedBy = to
				n++
			}
		}
	default:
		return 0, retention.NewStorageError(memoryBackend, "reassign",
			fmt.Errorf("entity %q has no owner", entity))
	}
	return n, nil
}

func (d *dataset) CloseJobsOf(ctx context.Context, accountID string) (int64, error) {
	if err := d.checkFault("close_jobs", accountID); err != nil {
		return 0, err
	}
	var n int64
	for _, j := range d.jobs {
		if j.SupervisingProfessorID == accountID && j.State != retention.JobClosed {
			j.State = retention.JobClosed
			n++
		}
	}
	return n, nil
}

func (d *dataset) AnonymizeApplication(ctx context.Context, applicationID, sentinelID string) error {
	if err := d.checkFault("anonymize_application", applicationID); err != nil {
		return err
	}
	a, ok := d.applications[applicationID]
	if !ok {
		return retention.ErrNotFound
	}
	if _, ok := d.accounts[sentinelID]; !ok {
		return retention.NewStorageError(memoryBackend, "anonymize_application",
			fmt.Errorf("FOREIGN KEY constraint failed: account %s does not exist", sentinelID))
	}
	a.ApplicantID = sentinelID
	a.Motivation = scrubbedText
	a.SpecialSkills = scrubbedText
	a.Anonymized = true
	return nil
}

func (d *dataset) DeleteApplication(ctx context.Context, applicationID string) (bool, error) {
	if err := d.checkFault("delete_application", applicationID); err != nil {
		return false, err
	}
	if _, ok := d.applications[applicationID]; !ok {
		return false, nil
	}

	for _, a := range d.answers {
		if a.ApplicationID == applicationID {
			return false, fkViolation("applications", applicationID, "custom_field_answers")
		}
	}
	for _, e := range d.dictionary {
		if e.ApplicationID == applicationID {
			return false, fkViolation("applications", applicationID, "document_dictionary")
		}
	}
	for _, r := range d.reviews {
		if r.ApplicationID == applicationID {
			return false, fkViolation("applications", applicationID, "application_reviews")
		}
	}
	for _, c := range d.comments {
		if c.ApplicationID == applicationID {
			return false, fkViolation("applications", applicationID, "internal_comments")
		}
	}
	for _, r := range d.ratings {
		if r.ApplicationID == applicationID {
			return false, fkViolation("applications", applicationID, "ratings")
		}
	}
	for _, iv := range d.interviewees {
		if iv.ApplicationID == applicationID {
			return false, fkViolation("applications", applicationID, "interviewees")
		}
	}

	delete(d.applications, applicationID)
	return true, nil
}

func (d *dataset) DeleteAccount(ctx context.Context, accountID string) (bool, error) {
	if err := d.checkFault("delete_account", accountID); err != nil {
		return false, err
	}
	a, ok := d.accounts[accountID]
	if !ok {
		return false, nil
	}

	if len(a.Roles) > 0 {
		return false, fkViolation("accounts", accountID, "account_roles")
	}
	for _, s := range d.userSettings {
		if s.AccountID == accountID {
			return false, fkViolation("accounts", accountID, "user_settings")
		}
	}
	for _, s := range d.emailSettings {
		if s.AccountID == accountID {
			return false, fkViolation("accounts", accountID, "email_settings")
		}
	}
	for _, img := range d.images {
		if img.UploadedBy == accountID {
			return false, fkViolation("accounts", accountID, "images")
		}
	}
	for _, j := range d.jobs {
		if j.SupervisingProfessorID == accountID {
			return false, fkViolation("accounts", accountID, "jobs")
		}
	}
	for _, t := range d.templates {
		if t.CreatedBy == accountID {
			return false, fkViolation("accounts", accountID, "email_templates")
		}
	}
	for _, app := range d.applications {
		if app.ApplicantID == accountID {
			return false, fkViolation("accounts", accountID, "applications")
		}
	}
	for _, r := range d.reviews {
		if r.ReviewedBy == accountID {
			return false, fkViolation("accounts", accountID, "application_reviews")
		}
	}
	for _, c := range d.comments {
		if c.CreatedBy == accountID {
			return false, fkViolation("accounts", accountID, "internal_comments")
		}
	}
	for _, r := range d.ratings {
		if r.FromID == accountID {
			return false, fkViolation("accounts", accountID, "ratings")
		}
	}

	delete(d.accounts, accountID)
	return true, nil
}

func (d *dataset) RecordWarning(ctx context.Context, warning *retention.Warning) error {
	if err := d.checkFault("record_warning", warning.SubjectID); err != nil {
		return err
	}
	c := *warning
	c.ActivityAt = dbTime(c.ActivityAt)
	c.WarnedAt = dbTime(c.WarnedAt)
	d.warnings[warningKey{warning.Kind, warning.SubjectID}] = &c
	return nil
}

func deleteWhere[V any](m map[string]*V, match func(*V) bool) int64 {
	var n int64
	for id, v := range m {
		if match(v) {
			delete(m, id)
			n++
		}
	}
	return n
}
