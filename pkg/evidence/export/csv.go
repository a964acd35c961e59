package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"jobboard-hq/custodian/pkg/evidence"
)

// CSVExporter writes one row per record.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

var csvHeader = []string{
	"id", "run_id", "sweep", "dry_run", "trigger", "subject_hash",
	"outcome", "plan", "reason", "error", "decided_at", "recorded_at",
}

// Export writes records to w. Timestamps are RFC 3339 in UTC.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return evidence.NewExportError(FormatCSV, len(records), err)
		}
	}

	for i, r := range records {
		if i%100 == 0 && ctx.Err() != nil {
			return evidence.NewExportError(FormatCSV, len(records), ctx.Err())
		}
		row := []string{
			r.ID, r.RunID, r.Sweep, strconv.FormatBool(r.DryRun), r.Trigger, r.SubjectHash,
			r.Outcome, r.Plan, r.Reason, r.Error,
			r.DecidedAt.UTC().Format(time.RFC3339Nano), r.RecordedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := writer.Write(row); err != nil {
			return evidence.NewExportError(FormatCSV, len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError(FormatCSV, len(records), err)
	}
	return nil
}
