package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateFlags struct {
	next int
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration, including environment overrides,
and print the effective policy and the next fire times of each sweep.

Examples:
  custodian validate --config /etc/custodian/config.yaml
  custodian validate --next 5`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().IntVar(&validateFlags.next, "next", 3, "number of upcoming runs to show per sweep")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := cfg.Retention.Policy()
	fmt.Fprintln(out, "✓ Configuration valid")
	fmt.Fprintf(out, "enabled:                %t\n", p.Enabled)
	fmt.Fprintf(out, "dry run:                %t\n", p.DryRun)
	fmt.Fprintf(out, "application retention:  %d days\n", p.ApplicationRetentionDays)
	fmt.Fprintf(out, "account inactivity:     %d days\n", p.AccountRetentionDays)
	fmt.Fprintf(out, "warning window:         %d days\n", p.WarningWindowDays)
	fmt.Fprintf(out, "batch size:             %d\n", p.BatchSize)
	fmt.Fprintf(out, "max runtime:            %d minutes\n", p.MaxRuntimeMinutes)
	fmt.Fprintf(out, "storage:                %s\n", cfg.Storage.Backend)
	fmt.Fprintf(out, "notifications:          %s\n", cfg.Notification.Transport)
	if cfg.Admin.Enabled {
		fmt.Fprintf(out, "admin:                  %s, %d tokens, tls %t\n", cfg.Admin.ListenAddress, len(cfg.Admin.Tokens), cfg.Admin.TLS.Enabled)
		if len(cfg.Admin.Tokens) == 0 {
			fmt.Fprintln(out, "  warning: admin.tokens is empty, status and manual runs are unauthenticated")
		}
	}
	if e := cfg.Evidence; e.Enabled {
		fmt.Fprintf(out, "evidence:               %s, kept %d days, pruned %q\n", e.Backend, e.RetentionDays, e.PruneSchedule)
		if e.HashKey == "" {
			fmt.Fprintln(out, "  warning: evidence.hash_key is empty, subject hashes are unkeyed")
		}
	} else {
		fmt.Fprintln(out, "evidence:               disabled")
	}
	fmt.Fprintln(out)

	return printNextRuns(cmd, cfg.Retention.Schedules, validateFlags.next)
}
