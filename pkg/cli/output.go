package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"jobboard-hq/custodian/pkg/retention/runner"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is a human readable summary (default).
	FormatText OutputFormat = "text"
	// FormatJSON is the report list as JSON.
	FormatJSON OutputFormat = "json"
	// FormatCSV is one row per decision.
	FormatCSV OutputFormat = "csv"
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (text, json, csv)", s))
	}
}

// WriteReports renders sweep reports in the given format.
func WriteReports(w io.Writer, format OutputFormat, reports []*runner.Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case FormatCSV:
		return writeCSV(w, reports)
	default:
		return writeText(w, reports)
	}
}

func writeText(w io.Writer, reports []*runner.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SWEEP\tMODE\tSTOP\tCANDIDATES\tDELETED\tANONYMIZED\tSKIPPED\tWARNED\tVIOLATIONS\tFAILURES\tDURATION")
	for _, r := range reports {
		mode, deleted := "live", r.Deleted
		if r.DryRun {
			mode, deleted = "dry-run", r.Previewed
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Sweep, mode, r.StopReason, r.Candidates, deleted, r.Anonymized,
			r.Skipped, r.Warned+r.AlreadyWarned, r.Violations, r.Failures,
			r.Duration().Round(time.Millisecond))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range reports {
		if r.Error != "" {
			fmt.Fprintf(w, "\n%s: %s\n", r.Sweep, r.Error)
		}
		if len(r.Decisions) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s decisions:\n", r.Sweep)
		for _, d := range r.Decisions {
			line := fmt.Sprintf("  %-16s %s", d.Outcome, d.SubjectID)
			if d.Plan != "" {
				line += "  " + d.Plan
			}
			if d.Reason != "" {
				line += "  (" + d.Reason + ")"
			}
			if d.Error != "" {
				line += "  error: " + d.Error
			}
			fmt.Fprintln(w, line)
		}
		if r.DecisionsTruncated {
			fmt.Fprintln(w, "  ... truncated")
		}
	}
	return nil
}

var csvHeader = []string{"run_id", "sweep", "dry_run", "subject_id", "outcome", "plan", "reason", "error"}

func writeCSV(w io.Writer, reports []*runner.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range reports {
		for _, d := range r.Decisions {
			row := []string{
				r.RunID, r.Sweep, strconv.FormatBool(r.DryRun),
				d.SubjectID, string(d.Outcome), d.Plan, d.Reason, d.Error,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Clean reports whether every report finished without a budget stop,
// cancellation, read error or failed candidate.
func Clean(reports []*runner.Report) bool {
	for _, r := range reports {
		switch r.StopReason {
		case runner.StopBudget, runner.StopCancelled, runner.StopSelectError:
			return false
		}
		if r.Failures > 0 {
			return false
		}
	}
	return true
}
