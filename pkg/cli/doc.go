/*
Package cli provides helpers shared by the custodian commands.

Sweep reports can be rendered as text, JSON or CSV:

	if err := cli.WriteReports(os.Stdout, cli.FormatText, reports); err != nil {
		return err
	}

Text is a summary table followed by the recorded decisions. JSON is the
report list as served by the admin API. CSV has one row per decision and is
meant for audit spreadsheets.

Progress of an interactive sweep is printed by a runner.Recorder that can
wrap the metrics recorder:

	rec := cli.NewProgressRecorder(os.Stderr, collector)

Signal handling returns a context cancelled on SIGINT or SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Errors returned from commands map to process exit codes through ExitCode.
*/
package cli
