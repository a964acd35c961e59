package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware is HTTP middleware for operator token authentication.
type Middleware struct {
	validator *TokenValidator
	logger    *slog.Logger
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(validator *TokenValidator) *Middleware {
	return &Middleware{
		validator: validator,
		logger:    slog.Default().With("component", "admin.auth"),
	}
}

// Handle wraps next with token authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.validator.Enabled() {
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), Anonymous)))
			return
		}

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing operator token",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			unauthorized(w)
			return
		}

		op, err := m.validator.Validate(token)
		if err != nil {
			m.logger.Warn("invalid operator token",
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			unauthorized(w)
			return
		}

		m.logger.Debug("operator authenticated", "operator", op.Name, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="custodian"`)
	http.Error(w, "missing or invalid operator token", http.StatusUnauthorized)
}

// extractToken reads the bearer token, falling back to X-API-Key.
func extractToken(r *http.Request) string {
	if value := r.Header.Get("Authorization"); value != "" {
		const prefix = "Bearer "
		if len(value) > len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
			return strings.TrimSpace(value[len(prefix):])
		}
	}
	return r.Header.Get("X-API-Key")
}

type contextKey string

const operatorKey contextKey = "operator"

// WithOperator attaches op to ctx.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// OperatorFrom returns the operator attached by the middleware.
func OperatorFrom(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorKey).(Operator)
	return op, ok
}
