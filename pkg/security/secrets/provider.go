package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a provider that does not hold the secret.
var ErrNotFound = errors.New("secret not found")

// Provider retrieves secrets from one backend.
type Provider interface {
	// GetSecret returns the secret value or an error wrapping ErrNotFound.
	GetSecret(ctx context.Context, name string) (string, error)

	// Provider returns the provider name for logs.
	Provider() string
}
