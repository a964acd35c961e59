package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/sweep"
)

type fakeSweeps struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
	block chan struct{}
}

func (f *fakeSweeps) Run(ctx context.Context, name string, opts sweep.RunOptions) ([]*runner.Report, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return []*runner.Report{runner.Stopped(name, runner.StopCancelled, time.Now())}, nil
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []*runner.Report{runner.Stopped(name, runner.StopExhausted, time.Now())}, nil
}

func (f *fakeSweeps) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedules   config.SchedulesConfig
		wantEntries int
		wantError   bool
	}{
		{
			name:        "default schedules",
			schedules:   config.SchedulesConfig{Applications: "0 3 * * *", Accounts: "30 3 * * *", Warnings: "0 9 * * *"},
			wantEntries: 3,
		},
		{
			name:        "warnings unscheduled",
			schedules:   config.SchedulesConfig{Applications: "0 3 * * *", Accounts: "30 3 * * *"},
			wantEntries: 2,
		},
		{
			name:      "invalid schedule",
			schedules: config.SchedulesConfig{Applications: "0 3 * * *", Accounts: "every night"},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&fakeSweeps{}, tt.schedules)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if s.IsRunning() == tt.wantError {
				t.Errorf("IsRunning() = %v", s.IsRunning())
			}
			if err != nil {
				return
			}
			defer s.Stop()

			next := s.NextRuns()
			if len(next) != tt.wantEntries {
				t.Errorf("NextRuns() = %v, want %d entries", next, tt.wantEntries)
			}
			for name, at := range next {
				if !at.After(time.Now()) {
					t.Errorf("next run of %s = %v, want future", name, at)
				}
			}
		})
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	s := New(&fakeSweeps{}, config.SchedulesConfig{Applications: "0 3 * * *"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error on second Start")
	}
}

func TestScheduler_Fires(t *testing.T) {
	sweeps := &fakeSweeps{}
	s := New(sweeps, config.SchedulesConfig{Applications: "@every 1s"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	waitFor(t, 3*time.Second, func() bool { return sweeps.count(sweep.Applications) >= 1 })

	if sweeps.count(sweep.Accounts) != 0 {
		t.Error("unscheduled accounts sweep ran")
	}
}

func TestScheduler_SweepErrorDoesNotStopScheduling(t *testing.T) {
	sweeps := &fakeSweeps{err: errors.New("policy unavailable")}
	s := New(sweeps, config.SchedulesConfig{Warnings: "@every 1s"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	waitFor(t, 4*time.Second, func() bool { return sweeps.count(sweep.Warnings) >= 2 })
}

func TestScheduler_StopCancelsRunningSweep(t *testing.T) {
	sweeps := &fakeSweeps{block: make(chan struct{})}
	s := New(sweeps, config.SchedulesConfig{Accounts: "@every 1s"})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return sweeps.count(sweep.Accounts) >= 1 })

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not return")
	}
	if s.IsRunning() {
		t.Error("scheduler still running after Stop")
	}
	if len(s.NextRuns()) != 1 {
		t.Errorf("NextRuns() after Stop = %v", s.NextRuns())
	}
}

func TestScheduler_ContextCancelStops(t *testing.T) {
	s := New(&fakeSweeps{}, config.SchedulesConfig{Applications: "0 3 * * *"})
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cancel()
	waitFor(t, time.Second, func() bool { return !s.IsRunning() })
}

func TestNextFireTimes(t *testing.T) {
	from := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := NextFireTimes("0 3 * * *", from, 2)
	if err != nil {
		t.Fatalf("NextFireTimes() error = %v", err)
	}
	want := []time.Time{
		time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 3, 0, 0, 0, time.UTC),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("fire %d = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := NextFireTimes("not cron", from, 1); err == nil {
		t.Error("expected parse error")
	}
}
