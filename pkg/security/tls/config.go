package tls

import (
	"context"
	"crypto/tls"
	"fmt"

	"jobboard-hq/custodian/pkg/config"
)

// ServerConfig builds the admin listener's TLS configuration. The
// reloader keeps polling the key pair until ctx is done.
func ServerConfig(ctx context.Context, cfg *config.AdminTLSConfig) (*tls.Config, *CertificateReloader, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil, nil
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("cert_file and key_file are required when TLS is enabled")
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval)
	if err := reloader.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to load admin certificate: %w", err)
	}

	// #nosec G402 - MinVersion is validated to 1.2 or 1.3
	return &tls.Config{
		MinVersion:     ParseVersion(cfg.MinVersion),
		GetCertificate: reloader.GetCertificateFunc(),
	}, reloader, nil
}

// ParseVersion converts "1.2" or "1.3" to a tls version constant.
// Anything else yields TLS 1.3.
func ParseVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}
