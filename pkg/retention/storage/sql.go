package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"jobboard-hq/custodian/pkg/retention"
)

// SQLStore implements Store over database/sql. Queries are built with
// squirrel so the same code serves SQLite and PostgreSQL.
type SQLStore struct {
	queries
	db      *sqlx.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewSQLStore wraps an open database. backend names the store in errors and
// metrics ("sqlite", "sqlite-pure", "postgres").
func NewSQLStore(db *sqlx.DB, backend string, dialect Dialect) *SQLStore {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		placeholder = sq.Dollar
	}

	return &SQLStore{
		queries: queries{
			q:       db,
			sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
			backend: backend,
		},
		db:      db,
		dialect: dialect,
		logger:  slog.Default().With("component", "retention.storage."+backend),
	}
}

// Migrate creates the schema and records the schema version.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range SchemaStatements(s.dialect) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return retention.NewStorageError(s.backend, "create_schema", errors.Wrapf(err, "exec %q", firstLine(stmt)))
		}
	}

	insert := s.sb.Insert("schema_version").
		Columns("version", "applied_at").
		Values(SchemaVersion, dbTime(time.Now())).
		Suffix("ON CONFLICT (version) DO NOTHING")
	if _, err := s.exec(ctx, "insert_schema_version", insert); err != nil {
		return err
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version != SchemaVersion {
		return retention.NewStorageError(s.backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("database schema ready", "version", version)
	return nil
}

// SchemaVersion returns the latest applied schema version.
func (s *SQLStore) SchemaVersion(ctx context.Context) (int, error) {
	query, args, err := s.sb.Select("version").From("schema_version").OrderBy("version DESC").Limit(1).ToSql()
	if err != nil {
		return 0, retention.NewStorageError(s.backend, "get_schema_version", err)
	}
	var version int
	if err := sqlx.GetContext(ctx, s.db, &version, query, args...); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, retention.NewStorageError(s.backend, "get_schema_version", err)
	}
	return version, nil
}

// WithinTx implements Store.
func (s *SQLStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return retention.NewStorageError(s.backend, "begin", err)
	}
	defer s.finalizeTransaction(tx)

	if err := fn(&sqlTx{queries: queries{q: tx, sb: s.sb, backend: s.backend}}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return retention.NewStorageError(s.backend, "commit", err)
	}
	return nil
}

// finalizeTransaction rolls back a transaction that was not committed.
func (s *SQLStore) finalizeTransaction(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Error("failed to rollback transaction", "error", err)
	}
}

// EnsureSentinel implements Store.
func (s *SQLStore) EnsureSentinel(ctx context.Context, id string) error {
	now := dbTime(time.Now())
	insert := s.sb.Insert("accounts").
		Columns("id", "email", "first_name", "last_name", "preferred_language", "last_activity_at", "created_at").
		Values(id, sentinelEmail, "Deleted", "User", "", now, now).
		Suffix("ON CONFLICT (id) DO NOTHING")
	_, err := s.exec(ctx, "ensure_sentinel", insert)
	return err
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return retention.NewStorageError(s.backend, "ping", err)
	}
	return nil
}

// Backend implements Store.
func (s *SQLStore) Backend() string { return s.backend }

// DB returns the underlying database handle.
func (s *SQLStore) DB() *sqlx.DB { return s.db }

// Close implements Store.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return retention.NewStorageError(s.backend, "close", err)
	}
	s.logger.Info("storage closed")
	return nil
}

// queries holds the read side. It runs against either the pool or a transaction.
type queries struct {
	q       sqlx.ExtContext
	sb      sq.StatementBuilderType
	backend string
}

func (r *queries) fail(op string, err error) error {
	return retention.NewStorageError(r.backend, op, err)
}

func (r *queries) exec(ctx context.Context, op string, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, r.fail(op, errors.Wrap(err, "build statement"))
	}
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, r.fail(op, errors.Wrapf(err, "exec %s", op))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, r.fail(op, errors.Wrap(err, "rows affected"))
	}
	return n, nil
}

func (r *queries) selectInto(ctx context.Context, op string, dest interface{}, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return r.fail(op, errors.Wrap(err, "build query"))
	}
	if err := sqlx.SelectContext(ctx, r.q, dest, query, args...); err != nil {
		return r.fail(op, errors.Wrapf(err, "query %s", op))
	}
	return nil
}

func (r *queries) getInto(ctx context.Context, op string, dest interface{}, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return r.fail(op, errors.Wrap(err, "build query"))
	}
	if err := sqlx.GetContext(ctx, r.q, dest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return retention.ErrNotFound
		}
		return r.fail(op, errors.Wrapf(err, "query %s", op))
	}
	return nil
}

type accountRow struct {
	ID                string         `db:"id"`
	Email             string         `db:"email"`
	FirstName         string         `db:"first_name"`
	LastName          string         `db:"last_name"`
	PreferredLanguage string         `db:"preferred_language"`
	ResearchGroupID   sql.NullString `db:"research_group_id"`
	LastActivityAt    time.Time      `db:"last_activity_at"`
	CreatedAt         time.Time      `db:"created_at"`
}

var accountColumns = []string{
	"id", "email", "first_name", "last_name", "preferred_language",
	"research_group_id", "last_activity_at", "created_at",
}

type applicationRow struct {
	ID             string    `db:"id"`
	ApplicantID    string    `db:"applicant_id"`
	JobID          string    `db:"job_id"`
	State          string    `db:"state"`
	Motivation     string    `db:"motivation"`
	SpecialSkills  string    `db:"special_skills"`
	Anonymized     bool      `db:"anonymized"`
	LastModifiedAt time.Time `db:"last_modified_at"`
	CreatedAt      time.Time `db:"created_at"`
}

var applicationColumns = []string{
	"id", "applicant_id", "job_id", "state", "motivation", "special_skills",
	"anonymized", "last_modified_at", "created_at",
}

func (row *applicationRow) toApplication() *retention.Application {
	return &retention.Application{
		ID:             row.ID,
		ApplicantID:    row.ApplicantID,
		JobID:          row.JobID,
		State:          retention.ApplicationState(row.State),
		Motivation:     row.Motivation,
		SpecialSkills:  row.SpecialSkills,
		Anonymized:     row.Anonymized,
		LastModifiedAt: row.LastModifiedAt.UTC(),
		CreatedAt:      row.CreatedAt.UTC(),
	}
}

type warningRow struct {
	Kind             string    `db:"subject_kind"`
	SubjectID        string    `db:"subject_id"`
	NotificationType string    `db:"notification_type"`
	ActivityAt       time.Time `db:"activity_at"`
	WarnedAt         time.Time `db:"warned_at"`
}

func (r *queries) FindApplicationPage(ctx context.Context, filter ApplicationFilter, page PageRequest) ([]string, error) {
	b := r.sb.Select("id").From("applications").
		Where(sq.Lt{"last_modified_at": dbTime(filter.Before)})
	if !filter.NotBefore.IsZero() {
		b = b.Where(sq.GtOrEq{"last_modified_at": dbTime(filter.NotBefore)})
	}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, st := range filter.States {
			states[i] = string(st)
		}
		b = b.Where(sq.Eq{"state": states})
	}
	if filter.ExcludeAnonymized {
		b = b.Where(sq.Eq{"anonymized": false})
	}
	if page.After != "" {
		b = b.Where(sq.Gt{"id": page.After})
	}
	b = b.OrderBy("id ASC")
	if page.Size > 0 {
		b = b.Limit(uint64(page.Size))
	}

	var ids []string
	if err := r.selectInto(ctx, "find_applications", &ids, b); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *queries) FindAccountPage(ctx context.Context, filter AccountFilter, page PageRequest) ([]string, error) {
	b := r.sb.Select("id").From("accounts").
		Where(sq.Lt{"last_activity_at": dbTime(filter.Before)})
	if !filter.NotBefore.IsZero() {
		b = b.Where(sq.GtOrEq{"last_activity_at": dbTime(filter.NotBefore)})
	}
	if len(filter.ExcludeIDs) > 0 {
		b = b.Where(sq.NotEq{"id": filter.ExcludeIDs})
	}
	if page.After != "" {
		b = b.Where(sq.Gt{"id": page.After})
	}
	b = b.OrderBy("id ASC")
	if page.Size > 0 {
		b = b.Limit(uint64(page.Size))
	}

	var ids []string
	if err := r.selectInto(ctx, "find_accounts", &ids, b); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *queries) GetAccount(ctx context.Context, id string) (*retention.Account, error) {
	var row accountRow
	if err := r.getInto(ctx, "get_account", &row,
		r.sb.Select(accountColumns...).From("accounts").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}

	var roles []string
	if err := r.selectInto(ctx, "get_account_roles", &roles,
		r.sb.Select("role").From("account_roles").Where(sq.Eq{"account_id": id}).OrderBy("role")); err != nil {
		return nil, err
	}

	a := &retention.Account{
		ID:                row.ID,
		Email:             row.Email,
		FirstName:         row.FirstName,
		LastName:          row.LastName,
		PreferredLanguage: row.PreferredLanguage,
		ResearchGroupID:   row.ResearchGroupID.String,
		LastActivityAt:    row.LastActivityAt.UTC(),
		CreatedAt:         row.CreatedAt.UTC(),
	}
	for _, role := range roles {
		a.Roles = append(a.Roles, retention.Role(role))
	}
	return a, nil
}

func (r *queries) GetApplication(ctx context.Context, id string) (*retention.Application, error) {
	var row applicationRow
	if err := r.getInto(ctx, "get_application", &row,
		r.sb.Select(applicationColumns...).From("applications").Where(sq.Eq{"id": id})); err != nil {
		return nil, err
	}
	return row.toApplication(), nil
}

func (r *queries) ApplicationsByApplicant(ctx context.Context, accountID string) ([]*retention.Application, error) {
	var rows []applicationRow
	if err := r.selectInto(ctx, "applications_by_applicant", &rows,
		r.sb.Select(applicationColumns...).From("applications").
			Where(sq.Eq{"applicant_id": accountID}).OrderBy("id ASC")); err != nil {
		return nil, err
	}

	apps := make([]*retention.Application, 0, len(rows))
	for i := range rows {
		apps = append(apps, rows[i].toApplication())
	}
	return apps, nil
}

func (r *queries) DocumentsOfApplication(ctx context.Context, applicationID string) ([]string, error) {
	var ids []string
	if err := r.selectInto(ctx, "documents_of_application", &ids,
		r.sb.Select("document_id").Distinct().From("document_dictionary").
			Where(sq.Eq{"application_id": applicationID}).OrderBy("document_id")); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *queries) GetWarning(ctx context.Context, kind retention.SubjectKind, subjectID string) (*retention.Warning, error) {
	var row warningRow
	if err := r.getInto(ctx, "get_warning", &row,
		r.sb.Select("subject_kind", "subject_id", "notification_type", "activity_at", "warned_at").
			From("retention_warnings").
			Where(sq.Eq{"subject_kind": string(kind), "subject_id": subjectID})); err != nil {
		return nil, err
	}
	return &retention.Warning{
		Kind:             retention.SubjectKind(row.Kind),
		SubjectID:        row.SubjectID,
		NotificationType: row.NotificationType,
		ActivityAt:       row.ActivityAt.UTC(),
		WarnedAt:         row.WarnedAt.UTC(),
	}, nil
}

func (r *queries) Count(ctx context.Context, entity Entity) (int, error) {
	if !knownEntity(entity) {
		return 0, r.fail("count", fmt.Errorf("unknown entity %q", entity))
	}
	var n int
	if err := r.getInto(ctx, "count_"+string(entity), &n, r.sb.Select("COUNT(*)").From(string(entity))); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *queries) OwnerOf(ctx context.Context, entity Entity, id string) (string, error) {
	col, ok := ownerColumns[entity]
	if !ok {
		return "", r.fail("owner_of", fmt.Errorf("entity %q has no owner", entity))
	}
	var owner string
	if err := r.getInto(ctx, "owner_of_"+string(entity), &owner,
		r.sb.Select(col).From(string(entity)).Where(sq.Eq{"id": id})); err != nil {
		return "", err
	}
	return owner, nil
}

func knownEntity(entity Entity) bool {
	for _, e := range AllEntities {
		if e == entity {
			return true
		}
	}
	return false
}

// sqlTx adds the write side on top of a transaction.
type sqlTx struct {
	queries
}

func (t *sqlTx) DeleteByApplication(ctx context.Context, entity Entity, applicationID string) (int64, error) {
	op := "delete_" + string(entity)
	switch entity {
	case EntityCustomFieldAnswers, EntityDocumentDictionary, EntityApplicationReviews,
		EntityInternalComments, EntityRatings, EntityInterviewees:
		return t.exec(ctx, op, t.sb.Delete(string(entity)).Where(sq.Eq{"application_id": applicationID}))
	case EntityInterviewSlots:
		return t.exec(ctx, op, t.sb.Delete("interview_slots").
			Where("interviewee_id IN (SELECT id FROM interviewees WHERE application_id = ?)", applicationID))
	case EntityRetentionWarnings:
		return t.exec(ctx, op, t.sb.Delete("retention_warnings").
			Where(sq.Eq{"subject_kind": string(retention.SubjectApplication), "subject_id": applicationID}))
	}
	return 0, t.fail("delete_by_application", fmt.Errorf("entity %q is not owned by an application", entity))
}

func (t *sqlTx) DeleteByAccount(ctx context.Context, entity Entity, accountID string) (int64, error) {
	op := "delete_" + string(entity)
	switch entity {
	case EntityUserSettings, EntityEmailSettings, EntityAccountRoles:
		return t.exec(ctx, op, t.sb.Delete(string(entity)).Where(sq.Eq{"account_id": accountID}))
	case EntityImages:
		return t.exec(ctx, op, t.sb.Delete("images").
			Where(sq.Eq{"uploaded_by": accountID}).
			Where(sq.Or{
				sq.Eq{"image_type": string(retention.ImageProfile)},
				sq.Expr("NOT EXISTS (SELECT 1 FROM jobs WHERE jobs.image_id = images.id)"),
			}))
	case EntityRetentionWarnings:
		return t.exec(ctx, op, t.sb.Delete("retention_warnings").
			Where(sq.Eq{"subject_kind": string(retention.SubjectAccount), "subject_id": accountID}))
	}
	return 0, t.fail("delete_by_account", fmt.Errorf("entity %q is not owned by an account", entity))
}

func (t *sqlTx) DeleteUnreferencedDocuments(ctx context.Context, documentIDs []string) (int64, error) {
	if len(documentIDs) == 0 {
		return 0, nil
	}
	return t.exec(ctx, "delete_documents", t.sb.Delete("documents").
		Where(sq.Eq{"id": documentIDs}).
		Where("NOT EXISTS (SELECT 1 FROM document_dictionary WHERE document_dictionary.document_id = documents.id)"))
}

func (t *sqlTx) ReassignOwner(ctx context.Context, entity Entity, from, to string) (int64, error) {
	col, ok := ownerColumns[entity]
	if !ok {
		return 0, t.fail("reassign", fmt.Errorf("entity %q has no owner", entity))
	}
	b := t.sb.Update(string(entity)).Set(col, to).Where(sq.Eq{col: from})
	if entity == EntityImages {
		b = b.Where(sq.NotEq{"image_type": string(retention.ImageProfile)})
	}
	return t.exec(ctx, "reassign_"+string(entity), b)
}

func (t *sqlTx) CloseJobsOf(ctx context.Context, accountID string) (int64, error) {
	return t.exec(ctx, "close_jobs", t.sb.Update("jobs").
		Set("state", string(retention.JobClosed)).
		Where(sq.Eq{"supervising_professor_id": accountID}).
		Where(sq.NotEq{"state": string(retention.JobClosed)}))
}

func (t *sqlTx) AnonymizeApplication(ctx context.Context, applicationID, sentinelID string) error {
	n, err := t.exec(ctx, "anonymize_application", t.sb.Update("applications").
		Set("applicant_id", sentinelID).
		Set("motivation", scrubbedText).
		Set("special_skills", scrubbedText).
		Set("anonymized", true).
		Where(sq.Eq{"id": applicationID}))
	if err != nil {
		return err
	}
	if n == 0 {
		return retention.ErrNotFound
	}
	return nil
}

func (t *sqlTx) DeleteApplication(ctx context.Context, applicationID string) (bool, error) {
	n, err := t.exec(ctx, "delete_application", t.sb.Delete("applications").Where(sq.Eq{"id": applicationID}))
	return n > 0, err
}

func (t *sqlTx) DeleteAccount(ctx context.Context, accountID string) (bool, error) {
	n, err := t.exec(ctx, "delete_account", t.sb.Delete("accounts").Where(sq.Eq{"id": accountID}))
	return n > 0, err
}

func (t *sqlTx) RecordWarning(ctx context.Context, w *retention.Warning) error {
	_, err := t.exec(ctx, "record_warning", t.sb.Insert("retention_warnings").
		Columns("subject_kind", "subject_id", "notification_type", "activity_at", "warned_at").
		Values(string(w.Kind), w.SubjectID, w.NotificationType, dbTime(w.ActivityAt), dbTime(w.WarnedAt)).
		Suffix("ON CONFLICT (subject_kind, subject_id) DO UPDATE SET "+
			"notification_type = excluded.notification_type, "+
			"activity_at = excluded.activity_at, "+
			"warned_at = excluded.warned_at"))
	return err
}

func firstLine(stmt string) string {
	for i, c := range stmt {
		if c == '\n' {
			return stmt[:i]
		}
	}
	return stmt
}
