// Package logging configures log/slog for custodian.
//
// Components log through slog.Default().With("component", ...). Setup
// installs a default logger whose Handler
//   - adds run_id, sweep, candidate_id, request_id and trace_id from the
//     context of *Context calls,
//   - redacts email addresses, international phone numbers, bearer tokens,
//     passwords and custom patterns from attribute values,
//   - writes JSON or text at the configured level.
//
// Warning recipients are personal data; with redaction on,
//
//	logger.InfoContext(ctx, "notification", "recipient", "ada@example.org")
//
// is written with recipient "***@example.org".
package logging
