package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// secretRefRegex matches ${secret:name} references.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Resolver looks secrets up in a chain of providers. The first provider
// that holds a secret wins; any error other than ErrNotFound stops the
// lookup.
type Resolver struct {
	providers []Provider
	logger    *slog.Logger
}

// NewResolver creates a resolver over providers, tried in order.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{
		providers: providers,
		logger:    slog.Default().With("component", "secrets"),
	}
}

// GetSecret returns the named secret from the first provider holding it.
func (r *Resolver) GetSecret(ctx context.Context, name string) (string, error) {
	for _, p := range r.providers {
		value, err := p.GetSecret(ctx, name)
		if err == nil {
			r.logger.Debug("secret resolved", "name", redactSecretName(name), "provider", p.Provider())
			return value, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("secret %q from %s: %w", name, p.Provider(), err)
		}
	}
	return "", fmt.Errorf("secret %q: %w", name, ErrNotFound)
}

// Resolve replaces every ${secret:name} reference in input. All failures
// are reported together.
func (r *Resolver) Resolve(ctx context.Context, input string) (string, error) {
	if !strings.Contains(input, "${secret:") {
		return input, nil
	}

	var failures []string
	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := r.GetSecret(ctx, name)
		if err != nil {
			failures = append(failures, err.Error())
			return match
		}
		return value
	})

	if len(failures) > 0 {
		return "", fmt.Errorf("failed to resolve secret references: %s", strings.Join(failures, "; "))
	}
	return output, nil
}

// ResolveAll resolves each named field in place. A field that fails keeps
// its original value.
func (r *Resolver) ResolveAll(ctx context.Context, fields map[string]*string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	for _, name := range names {
		resolved, err := r.Resolve(ctx, *fields[name])
		if err != nil {
			failures = append(failures, name+": "+err.Error())
			continue
		}
		*fields[name] = resolved
	}
	if len(failures) > 0 {
		return errors.New(strings.Join(failures, "; "))
	}
	return nil
}

// redactSecretName shows only the first and last two characters.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
