package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider loads secrets from environment variables.
//
// The secret name is upper-cased, hyphens become underscores and the prefix
// is prepended: "smtp-password" is read from CUSTODIAN_SECRET_SMTP_PASSWORD
// with prefix "CUSTODIAN_SECRET_".
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment variable secret provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret reads the secret's environment variable. An empty variable
// counts as missing.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("%w in environment (%s)", ErrNotFound, envVar)
	}
	return value, nil
}

// Provider returns the provider name.
func (p *EnvProvider) Provider() string {
	return "env"
}

// EnvVar returns the environment variable holding the named secret.
func (p *EnvProvider) EnvVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
