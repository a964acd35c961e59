package storage

import (
	"context"
	"sort"
	"sync"

	"jobboard-hq/custodian/pkg/evidence"
)

// MemoryStorage keeps evidence records in a map. Records do not survive a
// restart.
type MemoryStorage struct {
	records map[string]*evidence.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*evidence.Record),
	}
}

// Store saves a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *evidence.Record) error {
	if err := ctx.Err(); err != nil {
		return evidence.NewStorageError(BackendMemory, "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Query returns copies of the matching records.
func (s *MemoryStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	s.mu.RLock()
	results := make([]*evidence.Record, 0)
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}
	s.mu.RUnlock()

	asc := query.SortOrder == "asc"
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.DecidedAt.Equal(b.DecidedAt) {
			if asc {
				return a.DecidedAt.Before(b.DecidedAt)
			}
			return a.DecidedAt.After(b.DecidedAt)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	start := query.Offset
	if start > len(results) {
		return []*evidence.Record{}, nil
	}
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes the matching records.
func (s *MemoryStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*evidence.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

func matchesQuery(record *evidence.Record, query *evidence.Query) bool {
	if query.StartTime != nil && record.DecidedAt.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.DecidedAt.After(*query.EndTime) {
		return false
	}
	if query.RunID != "" && record.RunID != query.RunID {
		return false
	}
	if query.Sweep != "" && record.Sweep != query.Sweep {
		return false
	}
	if query.Outcome != "" && record.Outcome != query.Outcome {
		return false
	}
	if query.SubjectHash != "" && record.SubjectHash != query.SubjectHash {
		return false
	}
	if query.Trigger != "" && record.Trigger != query.Trigger {
		return false
	}
	if query.DryRun != nil && record.DryRun != *query.DryRun {
		return false
	}
	return true
}
