package storage

import "strings"

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Dialect selects the SQL flavour of a backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// schemaTemplate is shared by both dialects. {{TS}} and {{BOOL_FALSE}} are
// substituted per dialect.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    preferred_language TEXT NOT NULL DEFAULT '',
    research_group_id TEXT,
    last_activity_at {{TS}} NOT NULL,
    created_at {{TS}} NOT NULL
);

CREATE TABLE IF NOT EXISTS account_roles (
    account_id TEXT NOT NULL REFERENCES accounts(id),
    role TEXT NOT NULL,
    PRIMARY KEY (account_id, role)
);

CREATE TABLE IF NOT EXISTS user_settings (
    account_id TEXT NOT NULL REFERENCES accounts(id),
    setting_key TEXT NOT NULL,
    setting_value TEXT NOT NULL,
    PRIMARY KEY (account_id, setting_key)
);

CREATE TABLE IF NOT EXISTS email_settings (
    account_id TEXT NOT NULL REFERENCES accounts(id),
    notification_type TEXT NOT NULL,
    enabled BOOLEAN NOT NULL,
    PRIMARY KEY (account_id, notification_type)
);

CREATE TABLE IF NOT EXISTS images (
    id TEXT PRIMARY KEY,
    uploaded_by TEXT NOT NULL REFERENCES accounts(id),
    image_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    supervising_professor_id TEXT NOT NULL REFERENCES accounts(id),
    title TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL,
    image_id TEXT REFERENCES images(id)
);

CREATE TABLE IF NOT EXISTS email_templates (
    id TEXT PRIMARY KEY,
    created_by TEXT NOT NULL REFERENCES accounts(id),
    research_group_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS applications (
    id TEXT PRIMARY KEY,
    applicant_id TEXT NOT NULL REFERENCES accounts(id),
    job_id TEXT NOT NULL REFERENCES jobs(id),
    state TEXT NOT NULL,
    motivation TEXT NOT NULL DEFAULT '',
    special_skills TEXT NOT NULL DEFAULT '',
    anonymized BOOLEAN NOT NULL DEFAULT {{BOOL_FALSE}},
    last_modified_at {{TS}} NOT NULL,
    created_at {{TS}} NOT NULL
);

CREATE TABLE IF NOT EXISTS custom_field_answers (
    id TEXT PRIMARY KEY,
    application_id TEXT NOT NULL REFERENCES applications(id),
    answer TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    mime_type TEXT NOT NULL DEFAULT '',
    size_bytes BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS document_dictionary (
    id TEXT PRIMARY KEY,
    application_id TEXT NOT NULL REFERENCES applications(id),
    document_id TEXT NOT NULL REFERENCES documents(id),
    document_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS application_reviews (
    id TEXT PRIMARY KEY,
    application_id TEXT NOT NULL REFERENCES applications(id),
    reviewed_by TEXT NOT NULL REFERENCES accounts(id),
    reason TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS internal_comments (
    id TEXT PRIMARY KEY,
    application_id TEXT NOT NULL REFERENCES applications(id),
    created_by TEXT NOT NULL REFERENCES accounts(id),
    message TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS ratings (
    id TEXT PRIMARY KEY,
    application_id TEXT NOT NULL REFERENCES applications(id),
    from_id TEXT NOT NULL REFERENCES accounts(id),
    rating INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS interviewees (
    id TEXT PRIMARY KEY,
    application_id TEXT NOT NULL REFERENCES applications(id)
);

CREATE TABLE IF NOT EXISTS interview_slots (
    id TEXT PRIMARY KEY,
    job_id TEXT NOT NULL REFERENCES jobs(id),
    interviewee_id TEXT REFERENCES interviewees(id),
    starts_at {{TS}} NOT NULL
);

CREATE TABLE IF NOT EXISTS retention_warnings (
    subject_kind TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    notification_type TEXT NOT NULL DEFAULT '',
    activity_at {{TS}} NOT NULL,
    warned_at {{TS}} NOT NULL,
    PRIMARY KEY (subject_kind, subject_id)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at {{TS}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_last_activity ON accounts(last_activity_at);
CREATE INDEX IF NOT EXISTS idx_applications_last_modified ON applications(last_modified_at);
CREATE INDEX IF NOT EXISTS idx_applications_applicant ON applications(applicant_id);
CREATE INDEX IF NOT EXISTS idx_document_dictionary_application ON document_dictionary(application_id);
CREATE INDEX IF NOT EXISTS idx_document_dictionary_document ON document_dictionary(document_id);
CREATE INDEX IF NOT EXISTS idx_interviewees_application ON interviewees(application_id);
CREATE INDEX IF NOT EXISTS idx_jobs_professor ON jobs(supervising_professor_id);
`

// SchemaStatements returns the DDL of the dialect split into single statements.
func SchemaStatements(dialect Dialect) []string {
	ts, boolFalse := "TIMESTAMP", "0"
	if dialect == DialectPostgres {
		ts, boolFalse = "TIMESTAMPTZ", "FALSE"
	}
	ddl := strings.NewReplacer("{{TS}}", ts, "{{BOOL_FALSE}}", boolFalse).Replace(schemaTemplate)

	var stmts []string
	for _, stmt := range strings.Split(ddl, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
