package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"jobboard-hq/custodian/pkg/evidence"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/evidence.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

var evidenceColumns = []string{
	"id", "run_id", "sweep", "dry_run", "trigger_label", "subject_hash",
	"outcome", "plan", "reason", "error", "decided_at", "recorded_at",
}

// SQLiteStorage implements evidence.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens the database and applies the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Path == "" {
		return nil, evidence.NewStorageError(BackendSQLite, "open", errors.New("path is required"))
	}

	logger := slog.Default().With("component", "evidence.storage.sqlite")

	db, err := sql.Open("sqlite3", dsn(config))
	if err != nil {
		return nil, evidence.NewStorageError(BackendSQLite, "open", err)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("evidence storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)
	return s, nil
}

// dsn sets the busy timeout on every pooled connection, not only the one
// that runs the pragmas.
func dsn(config *SQLiteConfig) string {
	if config.BusyTimeout <= 0 {
		return config.Path
	}
	return fmt.Sprintf("file:%s?_busy_timeout=%d", config.Path, config.BusyTimeout.Milliseconds())
}

func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return evidence.NewStorageError(BackendSQLite, "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError(BackendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError(BackendSQLite, "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return evidence.NewStorageError(BackendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return evidence.NewStorageError(BackendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Store inserts record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	var errorVal any
	if record.Error != "" {
		errorVal = record.Error
	}

	query, args, err := sq.Insert("evidence").
		Columns(evidenceColumns...).
		Values(
			record.ID, record.RunID, record.Sweep, record.DryRun, record.Trigger, record.SubjectHash,
			record.Outcome, record.Plan, record.Reason, errorVal,
			record.DecidedAt.UnixNano(), record.RecordedAt.UnixNano(),
		).
		ToSql()
	if err != nil {
		return evidence.NewStorageError(BackendSQLite, "store", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return evidence.NewStorageError(BackendSQLite, "store", err)
	}
	return nil
}

// Query returns the matching records.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	order := "DESC"
	if query.SortOrder == "asc" {
		order = "ASC"
	}

	builder := sq.Select(evidenceColumns...).
		From("evidence").
		OrderBy("decided_at "+order, "id "+order)
	for _, cond := range conditions(query) {
		builder = builder.Where(cond)
	}
	if query.Limit > 0 {
		builder = builder.Limit(uint64(query.Limit))
	} else if query.Offset > 0 {
		// SQLite needs a LIMIT before OFFSET.
		builder = builder.Limit(uint64(1<<63 - 1))
	}
	if query.Offset > 0 {
		builder = builder.Offset(uint64(query.Offset))
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return nil, evidence.NewStorageError(BackendSQLite, "query", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError(BackendSQLite, "query", err)
	}
	defer rows.Close()

	records := make([]*evidence.Record, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, evidence.NewStorageError(BackendSQLite, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError(BackendSQLite, "query", err)
	}
	return records, nil
}

// Count returns the number of matching records.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	builder := sq.Select("COUNT(*)").From("evidence")
	for _, cond := range conditions(query) {
		builder = builder.Where(cond)
	}
	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return 0, evidence.NewStorageError(BackendSQLite, "count", err)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError(BackendSQLite, "count", err)
	}
	return count, nil
}

// Delete removes the matching records.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	builder := sq.Delete("evidence")
	for _, cond := range conditions(query) {
		builder = builder.Where(cond)
	}
	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return 0, evidence.NewStorageError(BackendSQLite, "delete", err)
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, evidence.NewStorageError(BackendSQLite, "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError(BackendSQLite, "delete", err)
	}
	if deleted > 0 {
		s.logger.Debug("evidence records deleted", "count", deleted)
	}
	return deleted, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError(BackendSQLite, "close", err)
	}
	return nil
}

func conditions(query *evidence.Query) []sq.Sqlizer {
	var where []sq.Sqlizer
	if query.StartTime != nil {
		where = append(where, sq.GtOrEq{"decided_at": query.StartTime.UnixNano()})
	}
	if query.EndTime != nil {
		where = append(where, sq.LtOrEq{"decided_at": query.EndTime.UnixNano()})
	}

	eq := sq.Eq{}
	if query.RunID != "" {
		eq["run_id"] = query.RunID
	}
	if query.Sweep != "" {
		eq["sweep"] = query.Sweep
	}
	if query.Outcome != "" {
		eq["outcome"] = query.Outcome
	}
	if query.SubjectHash != "" {
		eq["subject_hash"] = query.SubjectHash
	}
	if query.Trigger != "" {
		eq["trigger_label"] = query.Trigger
	}
	if query.DryRun != nil {
		eq["dry_run"] = *query.DryRun
	}
	if len(eq) > 0 {
		where = append(where, eq)
	}
	return where
}

func scanRecord(rows *sql.Rows) (*evidence.Record, error) {
	var (
		r          evidence.Record
		errorVal   sql.NullString
		decidedAt  int64
		recordedAt int64
	)
	if err := rows.Scan(
		&r.ID, &r.RunID, &r.Sweep, &r.DryRun, &r.Trigger, &r.SubjectHash,
		&r.Outcome, &r.Plan, &r.Reason, &errorVal, &decidedAt, &recordedAt,
	); err != nil {
		return nil, err
	}
	r.Error = errorVal.String
	r.DecidedAt = time.Unix(0, decidedAt).UTC()
	r.RecordedAt = time.Unix(0, recordedAt).UTC()
	return &r, nil
}
