package evidence

import (
	"context"
	"io"
	"time"
)

// Record is the evidence of one retention decision.
type Record struct {
	ID      string `json:"id"`     // UUID v4
	RunID   string `json:"run_id"` // Runner report id
	Sweep   string `json:"sweep"`
	DryRun  bool   `json:"dry_run"`
	Trigger string `json:"trigger,omitempty"`

	// SubjectHash is the keyed hash of the candidate id.
	SubjectHash string `json:"subject_hash"`

	Outcome string `json:"outcome"`
	Plan    string `json:"plan,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`

	DecidedAt  time.Time `json:"decided_at"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Query filters evidence records. Zero fields do not filter.
type Query struct {
	// Inclusive bounds on DecidedAt.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	RunID       string `json:"run_id,omitempty"`
	Sweep       string `json:"sweep,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	SubjectHash string `json:"subject_hash,omitempty"`
	Trigger     string `json:"trigger,omitempty"`
	DryRun      *bool  `json:"dry_run,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder is "asc" or "desc" by DecidedAt.
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage is an evidence backend. Implementations must be safe for
// concurrent use.
type Storage interface {
	Store(ctx context.Context, record *Record) error

	// Query returns matching records; an empty slice when none match.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records, ignoring Limit and Offset, and
	// returns how many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	Close() error
}

// Exporter writes records in one format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
