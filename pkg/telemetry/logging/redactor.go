package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"jobboard-hq/custodian/pkg/config"
)

// Built-in pattern names.
const (
	PatternEmail       = "email"
	PatternPhone       = "phone"
	PatternBearerToken = "bearer_token"
	PatternPassword    = "password"
	PatternToken       = "token"
)

// Redactor redacts personal data and credentials from log attributes.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

var defaultPatterns = []struct {
	name, regex, replacement string
}{
	// Keep the domain so delivery problems can still be grouped.
	{PatternEmail, `[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`, "***@$1"},
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*[^\s&]+`, "$1=***"},
	{PatternToken, `(?i)(token|secret)[:=]\s*[^\s&]+`, "$1=***"},
	// International format only; identifiers are dash-separated digits too.
	{PatternPhone, `\+\d{1,3}[\s.-]?\(?\d{1,4}\)?[\s.-]?\d{3,4}[\s.-]?\d{3,5}\b`, "+***"},
}

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = []string{
	"password", "passwd", "pwd", "secret", "token", "authorization", "email", "phone",
}

// NewRedactor creates a Redactor with the built-in patterns followed by
// custom patterns. Custom patterns that do not compile are skipped; config
// validation reports them.
func NewRedactor(custom []config.RedactPattern) *Redactor {
	r := &Redactor{}
	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}
	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r.patterns = append(r.patterns, redactPattern{name: p.Name, regex: regex, replacement: p.Replacement})
	}
	return r
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

// RedactAttr masks sensitive keys and pattern-matches string values,
// descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		return a
	default:
		return a
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func maskValue(v string) string {
	if v == "" {
		return ""
	}
	if at := strings.LastIndex(v, "@"); at > 0 {
		return RedactEmail(v)
	}
	return "***"
}

// RedactEmail redacts an email address partially (shows first char and domain).
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}
	if parts[0] == "" {
		return "***@" + parts[1]
	}
	return string(parts[0][0]) + "***@" + parts[1]
}
