package logging

import (
	"context"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run")
	ctx = WithSweep(ctx, "accounts")
	ctx = WithCandidate(ctx, "acc-1")
	ctx = WithRequestID(ctx, "req")
	ctx = WithTraceID(ctx, "trace")

	tests := []struct {
		name string
		get  func(context.Context) string
		want string
	}{
		{"run id", GetRunID, "run"},
		{"sweep", GetSweep, "accounts"},
		{"candidate", GetCandidate, "acc-1"},
		{"request id", GetRequestID, "req"},
		{"trace id", GetTraceID, "trace"},
	}
	for _, tt := range tests {
		if got := tt.get(ctx); got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
		}
		if got := tt.get(context.Background()); got != "" {
			t.Errorf("%s on empty context = %q", tt.name, got)
		}
	}
}

func TestContextAttrs_Order(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t")
	ctx = WithRunID(ctx, "r")
	ctx = WithCandidate(ctx, "c")

	attrs := contextAttrs(ctx)
	want := []string{"run_id", "candidate_id", "trace_id"}
	if len(attrs) != len(want) {
		t.Fatalf("expected %d attrs, got %d", len(want), len(attrs))
	}
	for i, a := range attrs {
		if a.Key != want[i] {
			t.Errorf("attr %d = %q, want %q", i, a.Key, want[i])
		}
	}
}

func TestContextOverwrite(t *testing.T) {
	ctx := WithCandidate(context.Background(), "first")
	ctx = WithCandidate(ctx, "second")
	if got := GetCandidate(ctx); got != "second" {
		t.Errorf("GetCandidate = %q, want second", got)
	}
}
