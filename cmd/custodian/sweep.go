package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"jobboard-hq/custodian/pkg/cli"
	"jobboard-hq/custodian/pkg/retention/runner"
	"jobboard-hq/custodian/pkg/retention/sweep"
)

var sweepFlags struct {
	dryRun   bool
	output   string
	progress bool
}

var sweepCmd = &cobra.Command{
	Use:   "sweep <applications|accounts|warnings|all>",
	Short: "Run one sweep now and print its report",
	Long: `Run a sweep once in the foreground and print the report.

The sweep uses the configured policy. --dry-run forces a preview even when the
configuration has dry_run disabled; it cannot turn a configured dry run into a
live run.

The exit code is 3 when a sweep stopped early (runtime budget, interrupt,
storage read error) or any candidate failed.

Examples:
  # Preview which applications would be deleted
  custodian sweep applications --dry-run

  # Run all sweeps and keep a CSV audit trail
  custodian sweep all --output csv > sweep.csv`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: append(append([]string{}, sweep.Names...), "all"),
	RunE:      runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().BoolVar(&sweepFlags.dryRun, "dry-run", false, "preview without changing data")
	sweepCmd.Flags().StringVarP(&sweepFlags.output, "output", "o", "text", "output format: text, json, csv")
	sweepCmd.Flags().BoolVar(&sweepFlags.progress, "progress", false, "print progress to stderr")
}

func runSweep(cmd *cobra.Command, args []string) error {
	names, err := sweepNames(args[0])
	if err != nil {
		return err
	}
	format, err := cli.ParseFormat(sweepFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	opts := appOptions{logWriter: cmd.ErrOrStderr()}
	if sweepFlags.progress {
		opts.wrapRecorder = func(next runner.Recorder) runner.Recorder {
			return cli.NewProgressRecorder(cmd.ErrOrStderr(), next)
		}
	}

	a, err := newApp(ctx, cfg, opts)
	if err != nil {
		return cli.NewCommandError("sweep", err)
	}
	defer a.close(context.Background())

	var reports []*runner.Report
	for _, name := range names {
		r, err := a.engine.Run(ctx, name, sweep.RunOptions{DryRun: sweepFlags.dryRun, Trigger: "cli"})
		reports = append(reports, r...)
		if err != nil {
			_ = cli.WriteReports(cmd.OutOrStdout(), format, reports)
			return cli.NewCommandError("sweep", err)
		}
	}

	if err := cli.WriteReports(cmd.OutOrStdout(), format, reports); err != nil {
		return err
	}
	if !cli.Clean(reports) {
		return &cli.CommandError{Command: "sweep", Code: cli.ExitIncomplete, Err: errors.New("sweep did not complete cleanly")}
	}
	return nil
}

func sweepNames(arg string) ([]string, error) {
	if arg == "all" {
		return sweep.Names, nil
	}
	for _, n := range sweep.Names {
		if n == arg {
			return []string{n}, nil
		}
	}
	return nil, cli.NewConfigError("sweep",
		fmt.Sprintf("unknown sweep %q (valid: %s, all)", arg, strings.Join(sweep.Names, ", ")))
}
