package logging

import (
	"context"
	"log/slog"
	"testing"

	"jobboard-hq/custodian/pkg/config"
)

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"email", "send to ada@example.org failed", "send to ***@example.org failed"},
		{"two emails", "a@x.io,b@y.io", "***@x.io,***@y.io"},
		{"bearer", "Authorization: Bearer eyJhbGciOi.abc", "Authorization: Bearer ***"},
		{"password in dsn", "postgres://u@db/x?password=s3cret&sslmode=require", "postgres://u@db/x?password=***&sslmode=require"},
		{"token", "token=abcdef", "token=***"},
		{"international phone", "call +49 30 1234 5678", "call +***"},
		{"uuid untouched", "00000000-0000-0000-0000-000000000000", "00000000-0000-0000-0000-000000000000"},
		{"date untouched", "2025-07-01", "2025-07-01"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.RedactString(tt.input); got != tt.want {
				t.Errorf("RedactString(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive key string", slog.String("smtp_password", "hunter22"), "***"},
		{"email key", slog.String("email", "ada@example.org"), "a***@example.org"},
		{"plain value", slog.String("sweep", "accounts"), "accounts"},
		{"error value", slog.Any("error", context.DeadlineExceeded), "context deadline exceeded"},
		{"sensitive any", slog.Any("token", []byte("x")), "***"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr(%v) = %q, want %q", tt.attr, got.Value.String(), tt.want)
			}
		})
	}

	if got := r.RedactAttr(slog.Int("deleted", 4)); got.Value.Int64() != 4 {
		t.Errorf("non-string value changed: %v", got)
	}
}

func TestRedactor_CustomPatterns(t *testing.T) {
	r := NewRedactor([]config.RedactPattern{
		{Name: "iban", Pattern: `DE\d{20}`, Replacement: "DE**"},
		{Name: "broken", Pattern: `([a-z`, Replacement: "x"},
	})

	if got := r.RedactString("iban DE89370400440532013000"); got != "iban DE**" {
		t.Errorf("custom pattern not applied: %q", got)
	}
}

func TestRedactor_Nil(t *testing.T) {
	var r *Redactor
	if got := r.RedactString("ada@example.org"); got != "ada@example.org" {
		t.Errorf("nil redactor changed value: %q", got)
	}
	a := slog.String("email", "ada@example.org")
	if got := r.RedactAttr(a); !got.Equal(a) {
		t.Errorf("nil redactor changed attr: %v", got)
	}
}

func TestRedactEmail(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ada@example.org", "a***@example.org"},
		{"@example.org", "***@example.org"},
		{"not-an-email", "not-an-email"},
	}
	for _, tt := range tests {
		if got := RedactEmail(tt.in); got != tt.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
