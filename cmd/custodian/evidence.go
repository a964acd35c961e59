package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"jobboard-hq/custodian/pkg/cli"
	"jobboard-hq/custodian/pkg/config"
	"jobboard-hq/custodian/pkg/evidence"
	"jobboard-hq/custodian/pkg/evidence/export"
	"jobboard-hq/custodian/pkg/evidence/pruning"
	"jobboard-hq/custodian/pkg/evidence/query"
	"jobboard-hq/custodian/pkg/evidence/recorder"
)

type evidenceOptions struct {
	sweep   string
	runID   string
	outcome string
	trigger string
	subject string
	since   string
	until   string
	limit   int
	offset  int
	order   string
	file    string

	listOutput   string
	exportFormat string
}

var evidenceFlags evidenceOptions

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Inspect, export and prune the retention evidence trail",
	Long: `Work with the evidence trail recorded when evidence.enabled is true.

Each record holds the run, sweep, trigger and outcome of one decision plus a
hash of the subject id. --subject hashes an id with the configured
evidence.hash_key so an auditor can check what happened to one account or
application.

--since and --until take an RFC 3339 timestamp or a duration back from now
(72h, 30m).

Examples:
  # Failures of the last day
  custodian evidence list --outcome failed --since 24h

  # Everything that happened to one account
  custodian evidence list --subject acc-123

  # Export one run for an auditor
  custodian evidence export --run-id 5b0e... -o csv --file run.csv`,
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List evidence records, newest first",
	Args:  cobra.NoArgs,
	RunE:  runEvidenceList,
}

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every matching evidence record as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE:  runEvidenceExport,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply evidence.retention_days and evidence.max_records now",
	Args:  cobra.NoArgs,
	RunE:  runEvidencePrune,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceListCmd, evidenceExportCmd, evidencePruneCmd)

	for _, c := range []*cobra.Command{evidenceListCmd, evidenceExportCmd} {
		f := c.Flags()
		f.StringVar(&evidenceFlags.sweep, "sweep", "", "filter by sweep")
		f.StringVar(&evidenceFlags.runID, "run-id", "", "filter by run id")
		f.StringVar(&evidenceFlags.outcome, "outcome", "", "filter by outcome")
		f.StringVar(&evidenceFlags.trigger, "trigger", "", "filter by trigger (schedule, cli, admin:<name>)")
		f.StringVar(&evidenceFlags.subject, "subject", "", "filter by subject id, hashed with evidence.hash_key")
		f.StringVar(&evidenceFlags.since, "since", "", "only records decided at or after this time")
		f.StringVar(&evidenceFlags.until, "until", "", "only records decided at or before this time")
		f.StringVar(&evidenceFlags.order, "order", "desc", "sort order: asc, desc")
	}
	evidenceListCmd.Flags().IntVar(&evidenceFlags.limit, "limit", query.DefaultLimit, "maximum records")
	evidenceListCmd.Flags().IntVar(&evidenceFlags.offset, "offset", 0, "records to skip")
	evidenceListCmd.Flags().StringVarP(&evidenceFlags.listOutput, "output", "o", "text", "output format: text, json, csv")
	evidenceExportCmd.Flags().StringVarP(&evidenceFlags.exportFormat, "output", "o", "json", "output format: json, csv")
	evidenceExportCmd.Flags().StringVar(&evidenceFlags.file, "file", "", "write to file instead of stdout")
}

// openEvidenceStore opens the configured evidence backend for a one-off
// command.
func openEvidenceStore() (*config.Config, evidence.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Evidence.Enabled {
		return nil, nil, cli.NewConfigError("evidence.enabled", "the evidence trail is disabled")
	}
	store, err := openEvidence(&cfg.Evidence)
	if err != nil {
		return nil, nil, cli.NewCommandError("evidence", err)
	}
	return cfg, store, nil
}

// evidenceQuery builds a query from the filter flags.
func evidenceQuery(cfg *config.Config, now time.Time) (*evidence.Query, error) {
	q := &evidence.Query{
		Sweep:     evidenceFlags.sweep,
		RunID:     evidenceFlags.runID,
		Outcome:   evidenceFlags.outcome,
		Trigger:   evidenceFlags.trigger,
		SortOrder: evidenceFlags.order,
	}
	if evidenceFlags.subject != "" {
		q.SubjectHash = recorder.NewSubjectHasher(cfg.Evidence.HashKey).Hash(evidenceFlags.subject)
	}

	var err error
	if q.StartTime, err = parseSince("since", evidenceFlags.since, now); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseSince("until", evidenceFlags.until, now); err != nil {
		return nil, err
	}
	return q, nil
}

// parseSince accepts an RFC 3339 timestamp or a duration before now.
func parseSince(flag, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return nil, cli.NewConfigError(flag, fmt.Sprintf("%q is neither an RFC 3339 time nor a positive duration", value))
	}
	t := now.Add(-d)
	return &t, nil
}

func runEvidenceList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evidenceFlags.listOutput)
	if err != nil {
		return err
	}
	cfg, store, err := openEvidenceStore()
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := evidenceQuery(cfg, time.Now())
	if err != nil {
		return err
	}
	q.Limit = evidenceFlags.limit
	q.Offset = evidenceFlags.offset
	if err := query.Validate(q); err != nil {
		return cli.NewConfigError("query", err.Error())
	}
	query.ApplyDefaults(q)

	records, err := store.Query(cmd.Context(), q)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}

	out := cmd.OutOrStdout()
	switch format {
	case cli.FormatJSON:
		return export.NewJSONExporter(true).Export(cmd.Context(), records, out)
	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(cmd.Context(), records, out)
	default:
		return writeEvidenceText(out, records)
	}
}

func writeEvidenceText(w io.Writer, records []*evidence.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no evidence records")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DECIDED\tSWEEP\tOUTCOME\tTRIGGER\tSUBJECT\tRUN\tDETAIL")
	for _, r := range records {
		sweep := r.Sweep
		if r.DryRun {
			sweep += " (dry run)"
		}
		detail := r.Plan
		if r.Reason != "" {
			detail = strings.TrimSpace(detail + " " + r.Reason)
		}
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.DecidedAt.Local().Format(time.RFC3339), sweep, r.Outcome, r.Trigger,
			shortHash(r.SubjectHash), r.RunID, detail)
	}
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// runEvidenceExport pages through every matching record.
func runEvidenceExport(cmd *cobra.Command, args []string) error {
	exporter, err := export.New(evidenceFlags.exportFormat)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}
	cfg, store, err := openEvidenceStore()
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := evidenceQuery(cfg, time.Now())
	if err != nil {
		return err
	}
	if err := query.Validate(q); err != nil {
		return cli.NewConfigError("query", err.Error())
	}

	records, err := queryAll(cmd.Context(), store, q)
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}

	out := cmd.OutOrStdout()
	if evidenceFlags.file != "" {
		f, err := os.OpenFile(evidenceFlags.file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return cli.NewCommandError("evidence", err)
		}
		defer f.Close()
		out = f
	}
	if err := exporter.Export(cmd.Context(), records, out); err != nil {
		return cli.NewCommandError("evidence", err)
	}
	if evidenceFlags.file != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d records to %s\n", len(records), evidenceFlags.file)
	}
	return nil
}

func queryAll(ctx context.Context, store evidence.Storage, q *evidence.Query) ([]*evidence.Record, error) {
	var all []*evidence.Record
	page := *q
	page.Limit = query.MaxLimit
	for {
		records, err := store.Query(ctx, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) < page.Limit {
			return all, nil
		}
		page.Offset += len(records)
	}
}

func runEvidencePrune(cmd *cobra.Command, args []string) error {
	cfg, store, err := openEvidenceStore()
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := pruning.NewPruner(store, pruningConfig(&cfg.Evidence)).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("evidence", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pruned %d records (%d by age, %d by count)\n", result.Total(), result.ByAge, result.ByCount)
	for _, a := range result.Archives {
		fmt.Fprintf(out, "archived to %s\n", a)
	}
	return nil
}
