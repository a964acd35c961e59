package notify

import (
	"context"
	"log/slog"
)

// LogTransport writes notifications to the log instead of delivering them.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport.
func NewLogTransport() *LogTransport {
	return &LogTransport{logger: slog.Default().With("component", "notify.log")}
}

func (t *LogTransport) Name() string { return "log" }

// Deliver logs the rendered subject. The recipient address is left to the
// log redactor.
func (t *LogTransport) Deliver(ctx context.Context, n Notification) error {
	msg := Render(n)
	t.logger.InfoContext(ctx, "notification",
		"type", n.Type,
		"subject_kind", n.SubjectKind,
		"subject_id", n.SubjectID,
		"recipient", n.Recipient.Email,
		"language", n.Language,
		"subject", msg.Subject,
	)
	return nil
}

func (t *LogTransport) Close() error { return nil }

// Ping checks a transport's connectivity if it supports it.
func Ping(ctx context.Context, t Transport) error {
	if p, ok := t.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
