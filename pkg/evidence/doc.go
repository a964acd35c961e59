/*
Package evidence keeps an audit trail of retention decisions.

Once a sweep has deleted an applicant's data nothing in the primary store
shows that it happened. Evidence records fill that gap: one record per
decision with the run, the sweep, the outcome and a keyed hash of the
subject identifier. The hash lets an auditor confirm that a given account
was processed without the trail itself holding the identifier.

# Components

  - recorder: implements runner.Journal and writes records asynchronously
  - storage: SQLite and in-memory backends
  - query: validation and defaults for queries
  - export: JSON and CSV exporters used by the CLI
  - pruning: removes records past evidence.retention_days on a cron schedule

# Configuration

	evidence:
	  enabled: true
	  backend: sqlite
	  sqlite:
	    path: data/evidence.db
	  hash_key: ${secret:evidence-hash-key}
	  retention_days: 730
	  prune_schedule: "0 5 * * *"
*/
package evidence
