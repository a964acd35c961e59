// Package storage persists the records the retention engine reads, deletes
// and anonymizes.
//
// Two backends implement Store:
//   - MemoryStore: typed maps, copy-on-write transactions, referential checks
//   - SQLStore: squirrel-built SQL over SQLite (mattn or modernc driver) or
//     PostgreSQL (pgx), instrumented with otelsql
//
// Candidate pages use keyset pagination on the record id so that deleting an
// earlier page never shifts a later one.
package storage
