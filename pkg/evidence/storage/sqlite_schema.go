package storage

// SchemaVersion is the current evidence schema version.
const SchemaVersion = 1

// Schema creates the evidence tables. Timestamps are stored as Unix
// nanoseconds so range filters and ordering are integer comparisons.
const Schema = `
CREATE TABLE IF NOT EXISTS evidence (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    sweep TEXT NOT NULL,
    dry_run BOOLEAN NOT NULL,
    trigger_label TEXT NOT NULL DEFAULT '',
    subject_hash TEXT NOT NULL,
    outcome TEXT NOT NULL,
    plan TEXT NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    error TEXT,
    decided_at INTEGER NOT NULL,
    recorded_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_evidence_decided_at ON evidence(decided_at);
CREATE INDEX IF NOT EXISTS idx_evidence_run_id ON evidence(run_id);
CREATE INDEX IF NOT EXISTS idx_evidence_sweep ON evidence(sweep, decided_at);
CREATE INDEX IF NOT EXISTS idx_evidence_subject_hash ON evidence(subject_hash);
`

// InsertSchemaVersion records SchemaVersion once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
