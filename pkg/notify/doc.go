// Package notify delivers retention notifications.
//
// AsyncSender is fire-and-forget: SendAsync queues the notification and
// returns immediately. Worker goroutines hand queued notifications to a
// Transport. Delivery failures are logged and counted but never returned and
// never retried, and a full queue drops the notification with a warning.
//
// Transports:
//
//   - LogTransport logs the rendered subject (development and dry runs).
//   - SMTPTransport sends a plain-text email over SMTP with optional STARTTLS
//     and PLAIN authentication.
//   - AMQPTransport publishes a persistent JSON message to a topic exchange,
//     routed by notification type, for a separate mail service.
//
// Subjects and bodies are rendered from a message catalog in English and
// German. The recipient's preferred language is matched against the
// supported set; anything else falls back to English.
package notify
