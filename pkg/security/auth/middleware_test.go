package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

var testTokens = []Token{
	{Name: "oncall", Value: "oncall-0123456789abcdef"},
	{Name: "ci", Value: "ci-fedcba9876543210"},
	{Name: "blank", Value: ""},
}

func TestTokenValidator(t *testing.T) {
	v := NewTokenValidator(testTokens)
	if !v.Enabled() {
		t.Fatal("validator with tokens should be enabled")
	}

	tests := []struct {
		token   string
		want    string
		wantErr bool
	}{
		{token: "oncall-0123456789abcdef", want: "oncall"},
		{token: "ci-fedcba9876543210", want: "ci"},
		{token: "oncall-0123456789abcdeX", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		op, err := v.Validate(tt.token)
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			continue
		}
		if op.Name != tt.want {
			t.Errorf("Validate(%q) = %q, want %q", tt.token, op.Name, tt.want)
		}
	}
}

func TestTokenValidator_Empty(t *testing.T) {
	v := NewTokenValidator([]Token{{Name: "unset"}})
	if v.Enabled() {
		t.Error("validator with only empty tokens should be disabled")
	}
}

func TestMiddleware_Handle(t *testing.T) {
	tests := []struct {
		name         string
		tokens       []Token
		header       string
		value        string
		wantStatus   int
		wantOperator string
	}{
		{
			name:         "bearer token",
			tokens:       testTokens,
			header:       "Authorization",
			value:        "Bearer oncall-0123456789abcdef",
			wantStatus:   http.StatusOK,
			wantOperator: "oncall",
		},
		{
			name:         "lowercase scheme",
			tokens:       testTokens,
			header:       "Authorization",
			value:        "bearer ci-fedcba9876543210",
			wantStatus:   http.StatusOK,
			wantOperator: "ci",
		},
		{
			name:         "api key header",
			tokens:       testTokens,
			header:       "X-API-Key",
			value:        "ci-fedcba9876543210",
			wantStatus:   http.StatusOK,
			wantOperator: "ci",
		},
		{
			name:       "basic scheme rejected",
			tokens:     testTokens,
			header:     "Authorization",
			value:      "Basic b25jYWxsOnB3",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong token",
			tokens:     testTokens,
			header:     "Authorization",
			value:      "Bearer nope",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing token",
			tokens:     testTokens,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:         "no tokens configured",
			wantStatus:   http.StatusOK,
			wantOperator: "anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Operator
			handler := NewMiddleware(NewTokenValidator(tt.tokens)).Handle(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					got, _ = OperatorFrom(r.Context())
					w.WriteHeader(http.StatusOK)
				}))

			req := httptest.NewRequest(http.MethodPost, "/sweeps/applications/run", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				if rec.Header().Get("WWW-Authenticate") == "" {
					t.Error("missing WWW-Authenticate header")
				}
				return
			}
			if got.Name != tt.wantOperator {
				t.Errorf("operator = %q, want %q", got.Name, tt.wantOperator)
			}
		})
	}
}

func TestOperatorFrom_Missing(t *testing.T) {
	if _, ok := OperatorFrom(context.Background()); ok {
		t.Error("expected no operator on a bare context")
	}
}
