package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "custodian",
	Short: "Custodian - data retention for the job board",
	Long: `Custodian applies the data-retention policy to the job-postings and
applications database.

Sweeps:
  applications  delete applications finalized longer ago than the retention period
  accounts      delete or anonymize accounts inactive longer than the inactivity period
  warnings      notify owners before their data reaches either limit

Every sweep honours retention.enabled and retention.dry_run from the
configuration file, which is re-read on each run.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns its error.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
