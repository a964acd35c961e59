package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/evidence"
)

func createTempDB(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "evidence.db")
	storage, err := NewSQLiteStorage(&SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage, dbPath
}

// backends runs fn against every storage implementation.
func backends(t *testing.T, fn func(t *testing.T, s evidence.Storage)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStorage())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, _ := createTempDB(t)
		fn(t, s)
	})
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// seed stores four records: two application deletions, one account
// anonymization and one dry-run preview, one hour apart.
func seed(t *testing.T, s evidence.Storage) {
	t.Helper()
	records := []*evidence.Record{
		{ID: "r1", RunID: "run-a", Sweep: "applications", Trigger: "schedule", SubjectHash: "h1", Outcome: "deleted", Plan: "delete"},
		{ID: "r2", RunID: "run-a", Sweep: "applications", Trigger: "schedule", SubjectHash: "h2", Outcome: "failed", Error: "blob store unavailable"},
		{ID: "r3", RunID: "run-b", Sweep: "accounts", Trigger: "admin:oncall", SubjectHash: "h3", Outcome: "anonymized", Plan: "anonymize", Reason: "sole owner"},
		{ID: "r4", RunID: "run-c", Sweep: "accounts", Trigger: "cli", DryRun: true, SubjectHash: "h1", Outcome: "previewed"},
	}
	for i, r := range records {
		r.DecidedAt = base.Add(time.Duration(i) * time.Hour)
		r.RecordedAt = r.DecidedAt.Add(time.Millisecond)
		if err := s.Store(context.Background(), r); err != nil {
			t.Fatalf("Store(%s): %v", r.ID, err)
		}
	}
}

func ids(records []*evidence.Record) string {
	out := ""
	for _, r := range records {
		out += r.ID + " "
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestStorage_StoreAndQuery(t *testing.T) {
	backends(t, func(t *testing.T, s evidence.Storage) {
		seed(t, s)
		ctx := context.Background()

		got, err := s.Query(ctx, &evidence.Query{RunID: "run-b"})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d records, want 1", len(got))
		}
		r := got[0]
		if r.Sweep != "accounts" || r.Trigger != "admin:oncall" || r.Plan != "anonymize" || r.Reason != "sole owner" {
			t.Errorf("unexpected record %+v", r)
		}
		if !r.DecidedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("DecidedAt = %v", r.DecidedAt)
		}
		if !r.RecordedAt.Equal(base.Add(2*time.Hour + time.Millisecond)) {
			t.Errorf("RecordedAt = %v", r.RecordedAt)
		}

		failed, err := s.Query(ctx, &evidence.Query{Outcome: "failed"})
		if err != nil {
			t.Fatal(err)
		}
		if len(failed) != 1 || failed[0].Error != "blob store unavailable" {
			t.Errorf("failed records = %+v", failed)
		}
	})
}

func TestStorage_QueryFilters(t *testing.T) {
	tests := []struct {
		name  string
		query evidence.Query
		want  string
	}{
		{name: "all newest first", query: evidence.Query{}, want: "r4 r3 r2 r1 "},
		{name: "ascending", query: evidence.Query{SortOrder: "asc"}, want: "r1 r2 r3 r4 "},
		{name: "sweep", query: evidence.Query{Sweep: "applications"}, want: "r2 r1 "},
		{name: "subject hash", query: evidence.Query{SubjectHash: "h1"}, want: "r4 r1 "},
		{name: "trigger", query: evidence.Query{Trigger: "cli"}, want: "r4 "},
		{name: "live only", query: evidence.Query{DryRun: ptr(false)}, want: "r3 r2 r1 "},
		{name: "time range inclusive", query: evidence.Query{StartTime: ptr(base.Add(time.Hour)), EndTime: ptr(base.Add(2 * time.Hour))}, want: "r3 r2 "},
		{name: "limit", query: evidence.Query{Limit: 2}, want: "r4 r3 "},
		{name: "offset without limit", query: evidence.Query{Offset: 3}, want: "r1 "},
		{name: "limit and offset", query: evidence.Query{Limit: 2, Offset: 1, SortOrder: "asc"}, want: "r2 r3 "},
		{name: "offset past end", query: evidence.Query{Offset: 10}, want: ""},
		{name: "no match", query: evidence.Query{Sweep: "warnings"}, want: ""},
	}

	backends(t, func(t *testing.T, s evidence.Storage) {
		seed(t, s)
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := s.Query(context.Background(), &tt.query)
				if err != nil {
					t.Fatalf("Query: %v", err)
				}
				if got == nil {
					t.Fatal("Query returned nil slice")
				}
				if ids(got) != tt.want {
					t.Errorf("Query = %q, want %q", ids(got), tt.want)
				}
			})
		}
	})
}

func TestStorage_CountAndDelete(t *testing.T) {
	backends(t, func(t *testing.T, s evidence.Storage) {
		seed(t, s)
		ctx := context.Background()

		n, err := s.Count(ctx, &evidence.Query{Sweep: "accounts"})
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("Count = %d, want 2", n)
		}

		// Limit is ignored by Delete.
		deleted, err := s.Delete(ctx, &evidence.Query{EndTime: ptr(base.Add(time.Hour)), Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 2 {
			t.Errorf("Delete = %d, want 2", deleted)
		}

		n, err = s.Count(ctx, &evidence.Query{})
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Errorf("Count after delete = %d, want 2", n)
		}
	})
}

func TestSQLiteStorage_DuplicateID(t *testing.T) {
	s, _ := createTempDB(t)
	r := &evidence.Record{ID: "dup", RunID: "run", Sweep: "applications", SubjectHash: "h", Outcome: "deleted", DecidedAt: base, RecordedAt: base}
	if err := s.Store(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	err := s.Store(context.Background(), r)
	var storageErr *evidence.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("second Store error = %v, want StorageError", err)
	}
	if storageErr.Operation != "store" {
		t.Errorf("Operation = %q", storageErr.Operation)
	}
}

func TestSQLiteStorage_Reopen(t *testing.T) {
	s, path := createTempDB(t)
	seed(t, s)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file: %v", err)
	}

	reopened, err := NewSQLiteStorage(&SQLiteConfig{Path: path, WALMode: true, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Count(context.Background(), &evidence.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("Count after reopen = %d, want 4", n)
	}
}

func TestSQLiteStorage_ConcurrentStore(t *testing.T) {
	s, _ := createTempDB(t)
	ctx := context.Background()

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func(i int) {
			errs <- s.Store(ctx, &evidence.Record{
				ID: fmt.Sprintf("c%02d", i), RunID: "run", Sweep: "applications",
				SubjectHash: "h", Outcome: "deleted", DecidedAt: base, RecordedAt: base,
			})
		}(i)
	}
	for i := 0; i < 20; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Store: %v", err)
		}
	}

	n, err := s.Count(ctx, &evidence.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if n != 20 {
		t.Errorf("Count = %d, want 20", n)
	}
}

func TestOpen(t *testing.T) {
	mem, err := Open(&config.EvidenceConfig{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if _, ok := mem.(*MemoryStorage); !ok {
		t.Errorf("Open(memory) = %T", mem)
	}

	lite, err := Open(&config.EvidenceConfig{
		Backend: BackendSQLite,
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "e.db"), WALMode: true},
	})
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	defer lite.Close()
	if _, ok := lite.(*SQLiteStorage); !ok {
		t.Errorf("Open(sqlite) = %T", lite)
	}

	if _, err := Open(&config.EvidenceConfig{Backend: "s3"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage(&SQLiteConfig{}); err == nil {
		t.Error("expected error for empty path")
	}
}
