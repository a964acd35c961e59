package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"jobboard-hq/custodian/pkg/evidence"
)

func sampleRecords() []*evidence.Record {
	at := time.Date(2026, 4, 2, 3, 4, 5, 0, time.UTC)
	return []*evidence.Record{
		{ID: "r1", RunID: "run-1", Sweep: "applications", Trigger: "schedule", SubjectHash: "abc", Outcome: "deleted", Plan: "delete", DecidedAt: at, RecordedAt: at},
		{ID: "r2", RunID: "run-1", Sweep: "applications", Trigger: "schedule", SubjectHash: "def", Outcome: "failed", Error: `bucket "cv", timeout`, DecidedAt: at, RecordedAt: at},
	}
}

func TestJSONExporter(t *testing.T) {
	tests := []struct {
		name    string
		records []*evidence.Record
		want    int
	}{
		{name: "records", records: sampleRecords(), want: 2},
		{name: "single record stays an array", records: sampleRecords()[:1], want: 1},
		{name: "nil", records: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewJSONExporter(false).Export(context.Background(), tt.records, &buf); err != nil {
				t.Fatalf("Export: %v", err)
			}
			var got []evidence.Record
			if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
			}
			if len(got) != tt.want {
				t.Errorf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestJSONExporter_Pretty(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONExporter(true).Export(context.Background(), sampleRecords(), &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\n  {") {
		t.Errorf("pretty output not indented:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `"subject_hash": "abc"`) {
		t.Errorf("missing subject_hash:\n%s", buf.String())
	}
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), sampleRecords(), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}
	if rows[2][9] != `bucket "cv", timeout` {
		t.Errorf("error column = %q", rows[2][9])
	}
	if rows[1][10] != "2026-04-02T03:04:05Z" {
		t.Errorf("decided_at column = %q", rows[1][10])
	}
}

func TestCSVExporter_NoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(false).Export(context.Background(), sampleRecords()[:1], &buf); err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(buf.String(), "id,") {
		t.Error("header written when disabled")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("pipe closed") }

func TestExport_WriteError(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatCSV} {
		t.Run(format, func(t *testing.T) {
			exp, err := New(format)
			if err != nil {
				t.Fatal(err)
			}
			err = exp.Export(context.Background(), sampleRecords(), failingWriter{})
			var exportErr *evidence.ExportError
			if !errors.As(err, &exportErr) {
				t.Fatalf("error = %v, want ExportError", err)
			}
			if exportErr.Format != format {
				t.Errorf("Format = %q, want %q", exportErr.Format, format)
			}
		})
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	if _, err := New("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
