package pruning

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/evidence/export"
)

// Config contains configuration for the pruner.
type Config struct {
	// RetentionDays is the number of days to retain evidence.
	// 0 keeps evidence forever.
	RetentionDays int

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64

	// PruneSchedule is a cron expression, e.g. "0 5 * * *".
	PruneSchedule string

	// ArchiveDir receives a JSON export of records before they are
	// deleted. Empty disables archiving.
	ArchiveDir string
}

// Result reports one pruning pass.
type Result struct {
	ByAge   int64 `json:"by_age"`
	ByCount int64 `json:"by_count"`

	// Archives lists the files written before deletion.
	Archives []string `json:"archives,omitempty"`
}

// Total returns the number of deleted records.
func (r Result) Total() int64 { return r.ByAge + r.ByCount }

// Pruner enforces the evidence retention limits.
type Pruner struct {
	storage evidence.Storage
	config  Config
	now     func() time.Time
	logger  *slog.Logger
}

// NewPruner creates a new pruner.
func NewPruner(storage evidence.Storage, config Config) *Pruner {
	return &Pruner{
		storage: storage,
		config:  config,
		now:     time.Now,
		logger:  slog.Default().With("component", "evidence.pruning"),
	}
}

// Prune deletes records past RetentionDays, then the oldest records beyond
// MaxRecords. Records sharing the cutoff timestamp of the count phase are
// deleted together, so the count can end slightly below MaxRecords.
func (p *Pruner) Prune(ctx context.Context) (Result, error) {
	var result Result

	if p.config.RetentionDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, archive, err := p.deleteThrough(ctx, cutoff, "age")
		if err != nil {
			return result, evidence.NewPruneError(p.config.RetentionDays, fmt.Errorf("prune by age: %w", err))
		}
		result.ByAge = deleted
		if archive != "" {
			result.Archives = append(result.Archives, archive)
		}
	}

	if p.config.MaxRecords > 0 {
		deleted, archive, err := p.pruneByCount(ctx)
		if err != nil {
			return result, evidence.NewPruneError(p.config.RetentionDays, fmt.Errorf("prune by count: %w", err))
		}
		result.ByCount = deleted
		if archive != "" {
			result.Archives = append(result.Archives, archive)
		}
	}

	if result.Total() == 0 {
		p.logger.Debug("no evidence records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("evidence pruning completed",
			"by_age", result.ByAge,
			"by_count", result.ByCount,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return result, nil
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, string, error) {
	count, err := p.storage.Count(ctx, &evidence.Query{})
	if err != nil {
		return 0, "", fmt.Errorf("count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, "", nil
	}

	excess := count - p.config.MaxRecords
	oldest, err := p.storage.Query(ctx, &evidence.Query{SortOrder: "asc", Limit: int(excess)})
	if err != nil {
		return 0, "", fmt.Errorf("query oldest records: %w", err)
	}
	if len(oldest) == 0 {
		return 0, "", nil
	}

	p.logger.Info("evidence record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", excess,
	)
	return p.deleteThrough(ctx, oldest[len(oldest)-1].DecidedAt, "count")
}

// deleteThrough archives and deletes every record decided at or before
// cutoff.
func (p *Pruner) deleteThrough(ctx context.Context, cutoff time.Time, phase string) (int64, string, error) {
	query := &evidence.Query{EndTime: &cutoff}

	var archive string
	if p.config.ArchiveDir != "" {
		var err error
		archive, err = p.archive(ctx, query, phase)
		if err != nil {
			return 0, "", err
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, archive, err
	}
	return deleted, archive, nil
}

func (p *Pruner) archive(ctx context.Context, query *evidence.Query, phase string) (string, error) {
	records, err := p.storage.Query(ctx, &evidence.Query{EndTime: query.EndTime, SortOrder: "asc"})
	if err != nil {
		return "", fmt.Errorf("query records for archiving: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(p.config.ArchiveDir, 0o750); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}
	name := filepath.Join(p.config.ArchiveDir,
		fmt.Sprintf("evidence-%s-%s.json", phase, p.now().UTC().Format("20060102T150405Z")))

	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}
	if err := export.NewJSONExporter(false).Export(ctx, records, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}

	p.logger.Info("evidence records archived", "archive_file", name, "record_count", len(records))
	return name, nil
}
