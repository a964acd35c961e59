package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider loads secrets from individual files in a directory, the
// layout of a mounted Kubernetes secret. Files are read on every lookup so
// a rotated secret is picked up on the next configuration reload.
type FileProvider struct {
	BasePath string
}

// NewFileProvider creates a file-based secret provider. basePath must be
// an existing directory.
func NewFileProvider(basePath string) (*FileProvider, error) {
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path is not a directory: %s", basePath)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve secrets directory: %w", err)
	}
	return &FileProvider{BasePath: abs}, nil
}

// GetSecret reads <BasePath>/<name>. The file must be a regular file with
// mode 0600 or 0400.
func (p *FileProvider) GetSecret(ctx context.Context, name string) (string, error) {
	path := filepath.Join(p.BasePath, name)

	// Validate path is within BasePath (prevent directory traversal)
	if filepath.Dir(path) != p.BasePath {
		return "", fmt.Errorf("invalid secret name %q", name)
	}

	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w in %s", ErrNotFound, p.BasePath)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret %q is not a regular file", name)
	}
	if mode := info.Mode().Perm(); mode != 0o600 && mode != 0o400 {
		return "", fmt.Errorf("insecure permissions on %s: %o (expected 0600 or 0400)", path, mode)
	}

	// #nosec G304 - path is confined to BasePath above
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Provider returns the provider name.
func (p *FileProvider) Provider() string {
	return "file"
}
