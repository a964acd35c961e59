// Custodian enforces data-retention policy on the job-postings and
// applications database.
//
// It runs three sweeps: expired applications are deleted, inactive accounts
// are deleted or anonymized, and owners of data about to expire are warned.
//
// Usage:
//
//	# Run the scheduler and admin server
//	custodian run --config /etc/custodian/config.yaml
//
//	# Preview one sweep without changing data
//	custodian sweep applications --dry-run
//
//	# Check configuration and show upcoming runs
//	custodian validate
//
//	# Create the schema
//	custodian migrate
package main

import (
	"os"

	"jobboard-hq/custodian/pkg/cli"
)

func main() {
	os.Exit(cli.ExitCode(Execute()))
}
