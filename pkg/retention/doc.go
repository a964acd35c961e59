// Package retention enforces the data-minimization policy of the job-postings
// backend. It deletes or anonymizes stale applications and accounts together
// with every dependent row, and warns users before their data is removed.
//
// # Architecture
//
// A sweep is assembled from small components, leaf first:
//
//  1. Policy and Clock - cutoffs, warning windows and budgets for one invocation
//  2. Selector - keyset-paginated candidate ids older than a cutoff
//  3. Disposition - Skip, DeleteApplicantData, AnonymizeStaffData or DeleteApplication
//  4. Cascade - static ordered step lists executed in one transaction per candidate
//  5. Runner - drives pages until exhausted, out of budget or cancelled
//  6. Warning - one notification per record entering the warning window
//  7. Sweep and Scheduler - cron-triggered entry points reading the policy fresh
//
// # Data Flow
//
//	Scheduler → Sweep Engine → Runner
//	     ↓
//	Selector (read page of ids)
//	     ↓
//	Disposition Resolver
//	     ↓
//	Cascade Executor (one transaction per candidate)
//
// # Protected Records
//
// ADMIN accounts, the sentinel deleted-user account and accounts without roles
// or research group affiliation are never modified. The selector excludes the
// sentinel in its query and again in code; the executor re-verifies every plan
// inside the transaction and fails the candidate with a
// DispositionViolationError instead of touching protected data.
//
// # Idempotence
//
// A candidate that disappeared between selection and execution converges
// silently (ErrNotFound is not an error). Running a sweep twice in a row with
// no new data changes nothing on the second run.
package retention
