package pruning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/evidence/storage"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

// seedDays stores one record per entry in ages, decided that many days
// before now.
func seedDays(t *testing.T, s evidence.Storage, ages ...int) {
	t.Helper()
	for i, age := range ages {
		at := now.AddDate(0, 0, -age)
		err := s.Store(context.Background(), &evidence.Record{
			ID: fmt.Sprintf("r%02d", i), RunID: "run", Sweep: "applications",
			SubjectHash: "h", Outcome: "deleted", DecidedAt: at, RecordedAt: at,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func newPruner(s evidence.Storage, cfg Config) *Pruner {
	p := NewPruner(s, cfg)
	p.now = func() time.Time { return now }
	return p
}

func TestPruner_Prune(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		ages        []int
		wantByAge   int64
		wantByCount int64
		wantLeft    int64
	}{
		{name: "nothing configured", config: Config{}, ages: []int{1, 500, 1000}, wantLeft: 3},
		{name: "by age", config: Config{RetentionDays: 730}, ages: []int{1, 500, 731, 1000}, wantByAge: 2, wantLeft: 2},
		{name: "cutoff is inclusive", config: Config{RetentionDays: 30}, ages: []int{30, 29}, wantByAge: 1, wantLeft: 1},
		{name: "by count", config: Config{MaxRecords: 2}, ages: []int{1, 2, 3, 4, 5}, wantByCount: 3, wantLeft: 2},
		{name: "count within limit", config: Config{MaxRecords: 10}, ages: []int{1, 2}, wantLeft: 2},
		{name: "age then count", config: Config{RetentionDays: 100, MaxRecords: 1}, ages: []int{1, 2, 200}, wantByAge: 1, wantByCount: 1, wantLeft: 1},
		{name: "count ties deleted together", config: Config{MaxRecords: 2}, ages: []int{1, 5, 5}, wantByCount: 2, wantLeft: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storage.NewMemoryStorage()
			seedDays(t, s, tt.ages...)

			result, err := newPruner(s, tt.config).Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune: %v", err)
			}
			if result.ByAge != tt.wantByAge || result.ByCount != tt.wantByCount {
				t.Errorf("result = %+v, want by_age=%d by_count=%d", result, tt.wantByAge, tt.wantByCount)
			}
			if left := int64(s.Size()); left != tt.wantLeft {
				t.Errorf("%d records left, want %d", left, tt.wantLeft)
			}
		})
	}
}

func TestPruner_KeepsNewest(t *testing.T) {
	s := storage.NewMemoryStorage()
	seedDays(t, s, 10, 1, 20) // r00, r01, r02

	if _, err := newPruner(s, Config{MaxRecords: 1}).Prune(context.Background()); err != nil {
		t.Fatal(err)
	}
	left, _ := s.Query(context.Background(), &evidence.Query{})
	if len(left) != 1 || left[0].ID != "r01" {
		t.Errorf("kept %v, want the newest record r01", left)
	}
}

func TestPruner_Archive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	s := storage.NewMemoryStorage()
	seedDays(t, s, 1, 400, 800)

	result, err := newPruner(s, Config{RetentionDays: 365, ArchiveDir: dir}).Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Archives) != 1 {
		t.Fatalf("archives = %v, want one file", result.Archives)
	}

	data, err := os.ReadFile(result.Archives[0])
	if err != nil {
		t.Fatal(err)
	}
	var archived []evidence.Record
	if err := json.Unmarshal(data, &archived); err != nil {
		t.Fatalf("archive is not a JSON array: %v", err)
	}
	if len(archived) != 2 || archived[0].ID != "r02" {
		t.Errorf("archived %+v, want r02 and r01 oldest first", archived)
	}
	if result.ByAge != 2 {
		t.Errorf("ByAge = %d, want 2", result.ByAge)
	}
}

func TestPruner_NoArchiveWhenNothingToDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	s := storage.NewMemoryStorage()
	seedDays(t, s, 1)

	result, err := newPruner(s, Config{RetentionDays: 365, ArchiveDir: dir}).Prune(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Archives) != 0 {
		t.Errorf("archives = %v", result.Archives)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("archive directory created without records: %v", err)
	}
}

type brokenStorage struct {
	*storage.MemoryStorage
}

func (brokenStorage) Delete(context.Context, *evidence.Query) (int64, error) {
	return 0, evidence.NewStorageError("sqlite", "delete", errors.New("database is locked"))
}

func TestPruner_StorageError(t *testing.T) {
	s := brokenStorage{storage.NewMemoryStorage()}
	seedDays(t, s, 900)

	_, err := newPruner(s, Config{RetentionDays: 30}).Prune(context.Background())
	var pruneErr *evidence.PruneError
	if !errors.As(err, &pruneErr) {
		t.Fatalf("error = %v, want PruneError", err)
	}
	var storageErr *evidence.StorageError
	if !errors.As(err, &storageErr) {
		t.Errorf("PruneError does not wrap the StorageError: %v", err)
	}
}
