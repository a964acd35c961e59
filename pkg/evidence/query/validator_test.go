package query

import (
	"errors"
	"testing"
	"time"

	"jobboard-hq/custodian/pkg/evidence"
)

func TestValidate(t *testing.T) {
	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name    string
		query   evidence.Query
		wantErr bool
	}{
		{name: "empty query", query: evidence.Query{}},
		{name: "full query", query: evidence.Query{Sweep: "accounts", Outcome: "anonymized", Limit: 50, Offset: 10, SortOrder: "asc", StartTime: &earlier, EndTime: &now}},
		{name: "max limit", query: evidence.Query{Limit: MaxLimit}},
		{name: "negative limit", query: evidence.Query{Limit: -1}, wantErr: true},
		{name: "limit too large", query: evidence.Query{Limit: MaxLimit + 1}, wantErr: true},
		{name: "negative offset", query: evidence.Query{Offset: -5}, wantErr: true},
		{name: "bad sort order", query: evidence.Query{SortOrder: "sideways"}, wantErr: true},
		{name: "inverted time range", query: evidence.Query{StartTime: &now, EndTime: &earlier}, wantErr: true},
		{name: "unknown outcome", query: evidence.Query{Outcome: "purged"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var qe *evidence.QueryError
				if !errors.As(err, &qe) {
					t.Errorf("error %T is not a QueryError", err)
				}
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	q := &evidence.Query{}
	ApplyDefaults(q)
	if q.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", q.Limit, DefaultLimit)
	}
	if q.SortOrder != "desc" {
		t.Errorf("SortOrder = %q, want desc", q.SortOrder)
	}

	q = &evidence.Query{Limit: 7, SortOrder: "asc"}
	ApplyDefaults(q)
	if q.Limit != 7 || q.SortOrder != "asc" {
		t.Errorf("explicit values overwritten: %+v", q)
	}
}
