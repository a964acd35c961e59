// Package storage provides evidence storage backends.
//
// SQLiteStorage is the production backend: a single file next to the
// retention database, opened with WAL and a busy timeout, queried with
// squirrel-built SQL. MemoryStorage backs tests and evidence.backend=memory.
//
// Both backends order query results by DecidedAt, newest first unless the
// query asks for "asc", with the record id as a tie breaker.
package storage
