package config

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// replaceFile swaps the file by rename so no reader sees it half written.
func replaceFile(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("failed to replace config: %v", err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, "retention:\n  enabled: false\nstorage:\n  backend: memory\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	replaceFile(t, path, "retention:\n  enabled: true\nstorage:\n  backend: memory\n")

	if !waitFor(t, 5*time.Second, func() bool { return GetConfig().Retention.Enabled }) {
		t.Fatal("configuration was not reloaded")
	}
}

func TestWatcher_InvalidChangeKeepsPrevious(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	path := writeConfig(t, "retention:\n  batch_size: 42\nstorage:\n  backend: memory\n")
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	original := GetConfig()

	w, err := NewWatcher(path, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	var attempts atomic.Int32
	w.reload = func(p string) error {
		attempts.Add(1)
		return ReloadConfig(p)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	replaceFile(t, path, "retention:\n  batch_size: -5\n")

	if !waitFor(t, 5*time.Second, func() bool { return attempts.Load() > 0 }) {
		t.Fatal("reload was not attempted")
	}
	if GetConfig() != original {
		t.Error("invalid change replaced the configuration")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeConfig(t, "storage:\n  backend: memory\n")

	w, err := NewWatcher(path, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	var attempts atomic.Int32
	w.reload = func(string) error {
		attempts.Add(1)
		return nil
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path+".bak", []byte("x"), 0644); err != nil {
		t.Fatalf("failed to write sibling: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	if n := attempts.Load(); n != 0 {
		t.Errorf("expected no reload for sibling file, got %d", n)
	}
}

func TestWatcher_StartTwice(t *testing.T) {
	w, err := NewWatcher(writeConfig(t, ""), 0)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("failed to start watcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error starting a running watcher")
	}
}

func TestDebouncer_CoalescesTriggers(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.trigger(func() { calls.Add(1) })
	}

	if !waitFor(t, time.Second, func() bool { return calls.Load() == 1 }) {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly one call, got %d", n)
	}

	d.stop()
	d.trigger(func() { calls.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("expected no call after stop, got %d", n)
	}
}
