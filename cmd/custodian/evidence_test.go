package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobboard-hq/custodian/pkg/cli"
	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/evidence/recorder"
	evidencestorage "jobboard-hq/custodian/pkg/evidence/storage"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		value   string
		want    *time.Time
		wantErr bool
	}{
		{value: ""},
		{value: "2026-06-01T00:00:00Z", want: ptrTime(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))},
		{value: "24h", want: ptrTime(now.Add(-24 * time.Hour))},
		{value: "yesterday", wantErr: true},
		{value: "-5h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := parseSince("since", tt.value, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSince(%q) error = %v", tt.value, err)
			}
			if err != nil {
				if cli.ExitCode(err) != cli.ExitConfig {
					t.Errorf("ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
				}
				return
			}
			if (got == nil) != (tt.want == nil) || (got != nil && !got.Equal(*tt.want)) {
				t.Errorf("parseSince(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func evidenceConfigFor(t *testing.T, dbPath string) *config.Config {
	t.Helper()
	var cfg config.Config
	cfg.Evidence.Enabled = true
	cfg.Evidence.SQLite.Path = dbPath
	config.ApplyDefaults(&cfg)
	return &cfg
}

func TestEvidenceCommands(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "evidence", "evidence.db")
	path := filepath.Join(dir, "config.yaml")
	yaml := `retention:
  enabled: true
storage:
  backend: memory
evidence:
  enabled: true
  backend: sqlite
  hash_key: test-key
  retention_days: 365
  sqlite:
    path: ` + dbPath + `
telemetry:
  logging:
    level: error
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	// Seed the trail the way a run would have left it.
	cfgStore, err := openEvidence(&evidenceConfigFor(t, dbPath).Evidence)
	if err != nil {
		t.Fatal(err)
	}
	hasher := recorder.NewSubjectHasher("test-key")
	now := time.Now().UTC()
	for _, r := range []*evidence.Record{
		{ID: "e1", RunID: "run-1", Sweep: "applications", Trigger: "schedule", SubjectHash: hasher.Hash("app-1"), Outcome: "deleted", Plan: "delete", DecidedAt: now.Add(-time.Hour)},
		{ID: "e2", RunID: "run-1", Sweep: "applications", Trigger: "schedule", SubjectHash: hasher.Hash("app-2"), Outcome: "failed", Error: "blob store down", DecidedAt: now.Add(-50 * time.Minute)},
		{ID: "e3", RunID: "run-0", Sweep: "accounts", Trigger: "cli", SubjectHash: hasher.Hash("acc-9"), Outcome: "anonymized", DecidedAt: now.AddDate(-2, 0, 0)},
	} {
		r.RecordedAt = r.DecidedAt
		if err := cfgStore.Store(context.Background(), r); err != nil {
			t.Fatal(err)
		}
	}
	cfgStore.Close()

	run := func(args ...string) (string, error) {
		evidenceFlags = evidenceOptions{}
		var out, errOut bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&errOut)
		rootCmd.SetArgs(append(args, "--config", path))
		t.Cleanup(func() {
			rootCmd.SetOut(nil)
			rootCmd.SetErr(nil)
		})
		err := rootCmd.Execute()
		return out.String(), err
	}

	t.Run("list text", func(t *testing.T) {
		out, err := run("evidence", "list")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, want := range []string{"DECIDED", "blob store down", "anonymized", "run-1"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("list by subject", func(t *testing.T) {
		out, err := run("evidence", "list", "--subject", "app-2", "-o", "json")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var records []evidence.Record
		if err := json.Unmarshal([]byte(out), &records); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(records) != 1 || records[0].ID != "e2" {
			t.Errorf("records = %+v", records)
		}
	})

	t.Run("list since", func(t *testing.T) {
		out, err := run("evidence", "list", "--since", "24h", "-o", "csv")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if lines := strings.Count(strings.TrimSpace(out), "\n"); lines != 2 {
			t.Errorf("got %d data rows, want 2:\n%s", lines, out)
		}
	})

	t.Run("list bad limit", func(t *testing.T) {
		_, err := run("evidence", "list", "--limit=-1")
		if cli.ExitCode(err) != cli.ExitConfig {
			t.Errorf("ExitCode = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitConfig, err)
		}
	})

	t.Run("export file", func(t *testing.T) {
		file := filepath.Join(dir, "run-1.csv")
		if _, err := run("evidence", "export", "--run-id", "run-1", "-o", "csv", "--file", file); err != nil {
			t.Fatalf("export: %v", err)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			t.Fatal(err)
		}
		if rows := strings.Count(strings.TrimSpace(string(data)), "\n"); rows != 2 {
			t.Errorf("got %d data rows, want 2:\n%s", rows, data)
		}
	})

	t.Run("export bad format", func(t *testing.T) {
		_, err := run("evidence", "export", "-o", "xml")
		if cli.ExitCode(err) != cli.ExitConfig {
			t.Errorf("ExitCode = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitConfig, err)
		}
	})

	t.Run("prune", func(t *testing.T) {
		out, err := run("evidence", "prune")
		if err != nil {
			t.Fatalf("prune: %v", err)
		}
		if !strings.Contains(out, "pruned 1 records (1 by age, 0 by count)") {
			t.Errorf("output = %q", out)
		}
	})
}

func TestEvidenceCommands_Disabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  backend: memory\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rootCmd.SetArgs([]string{"evidence", "list", "--config", path})
	rootCmd.SetOut(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	err := rootCmd.Execute()
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("ExitCode = %d, want %d (err %v)", cli.ExitCode(err), cli.ExitConfig, err)
	}
}

func TestOpenEvidence_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "evidence.db")
	store, err := openEvidence(&evidenceConfigFor(t, dbPath).Evidence)
	if err != nil {
		t.Fatalf("openEvidence: %v", err)
	}
	defer store.Close()
	if _, ok := store.(*evidencestorage.SQLiteStorage); !ok {
		t.Errorf("store = %T", store)
	}
}
