package tls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobboard-hq/custodian/pkg/config"
)

// writeKeyPair writes a self-signed certificate for cn valid in
// [notBefore, notAfter] and returns the file paths.
func writeKeyPair(t *testing.T, dir, cn string, notBefore, notAfter time.Time) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile = filepath.Join(dir, "admin.crt")
	keyFile = filepath.Join(dir, "admin.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func validPair(t *testing.T, cn string) (string, string) {
	now := time.Now()
	return writeKeyPair(t, t.TempDir(), cn, now.Add(-time.Hour), now.Add(90*24*time.Hour))
}

func TestValidateX509Certificate(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		notBefore time.Time
		notAfter  time.Time
		wantErr   string
	}{
		{name: "valid", notBefore: now.Add(-time.Hour), notAfter: now.Add(time.Hour)},
		{name: "not yet valid", notBefore: now.Add(time.Hour), notAfter: now.Add(2 * time.Hour), wantErr: "not yet valid"},
		{name: "expired", notBefore: now.Add(-2 * time.Hour), notAfter: now.Add(-time.Hour), wantErr: "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert := &x509.Certificate{NotBefore: tt.notBefore, NotAfter: tt.notAfter}
			err := ValidateX509Certificate(cert, now)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCertificate_Empty(t *testing.T) {
	if err := ValidateCertificate(nil); err == nil {
		t.Error("expected error for nil certificate")
	}
	if err := ValidateCertificate(&tls.Certificate{}); err == nil {
		t.Error("expected error for empty chain")
	}
}

func TestCheckCertificateExpiration(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	days, warning := CheckCertificateExpiration(&x509.Certificate{NotAfter: now.Add(90 * 24 * time.Hour)}, now)
	if days != 90 || warning != "" {
		t.Errorf("90 days: got %d, %q", days, warning)
	}

	days, warning = CheckCertificateExpiration(&x509.Certificate{NotAfter: now.Add(10 * 24 * time.Hour)}, now)
	if days != 10 {
		t.Errorf("days = %d, want 10", days)
	}
	if !strings.Contains(warning, "2026-03-11") {
		t.Errorf("warning = %q", warning)
	}
}

func TestParseVersion(t *testing.T) {
	if ParseVersion("1.2") != tls.VersionTLS12 {
		t.Error("1.2 should map to TLS 1.2")
	}
	for _, v := range []string{"1.3", "", "1.0"} {
		if ParseVersion(v) != tls.VersionTLS13 {
			t.Errorf("%q should map to TLS 1.3", v)
		}
	}
}

func TestServerConfig(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("disabled", func(t *testing.T) {
		tlsCfg, reloader, err := ServerConfig(ctx, &config.AdminTLSConfig{})
		if err != nil || tlsCfg != nil || reloader != nil {
			t.Fatalf("disabled TLS = %v, %v, %v", tlsCfg, reloader, err)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		certFile, keyFile := validPair(t, "custodian-admin")
		tlsCfg, reloader, err := ServerConfig(ctx, &config.AdminTLSConfig{
			Enabled:    true,
			CertFile:   certFile,
			KeyFile:    keyFile,
			MinVersion: "1.2",
		})
		if err != nil {
			t.Fatalf("ServerConfig: %v", err)
		}
		if tlsCfg.MinVersion != tls.VersionTLS12 {
			t.Errorf("MinVersion = %x", tlsCfg.MinVersion)
		}
		cert, err := tlsCfg.GetCertificate(&tls.ClientHelloInfo{})
		if err != nil || cert == nil {
			t.Fatalf("GetCertificate = %v, %v", cert, err)
		}
		if reloader.Leaf().Subject.CommonName != "custodian-admin" {
			t.Errorf("leaf CN = %q", reloader.Leaf().Subject.CommonName)
		}
	})

	t.Run("expired certificate", func(t *testing.T) {
		now := time.Now()
		certFile, keyFile := writeKeyPair(t, t.TempDir(), "old", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
		_, _, err := ServerConfig(ctx, &config.AdminTLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile})
		if err == nil || !strings.Contains(err.Error(), "expired") {
			t.Fatalf("expected expiry error, got %v", err)
		}
	})

	t.Run("missing files", func(t *testing.T) {
		_, _, err := ServerConfig(ctx, &config.AdminTLSConfig{Enabled: true, CertFile: "nope.crt", KeyFile: "nope.key"})
		if err == nil {
			t.Fatal("expected error for missing files")
		}
	})
}

func TestCertificateReloader_GetCertificateBeforeStart(t *testing.T) {
	r := NewCertificateReloader("a.crt", "a.key", time.Minute)
	if r.GetCertificate() != nil {
		t.Error("expected nil certificate before Start")
	}
	if _, err := r.GetCertificateFunc()(&tls.ClientHelloInfo{}); err == nil {
		t.Error("expected error before Start")
	}
}

func TestCertificateReloader_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	certFile, keyFile := writeKeyPair(t, dir, "first", now.Add(-time.Hour), now.Add(90*24*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := NewCertificateReloader(certFile, keyFile, 20*time.Millisecond)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := r.Leaf().Subject.CommonName; got != "first" {
		t.Fatalf("initial CN = %q", got)
	}

	writeKeyPair(t, dir, "second", now.Add(-time.Hour), now.Add(90*24*time.Hour))
	// make sure the mtime differs even on coarse filesystems
	later := now.Add(time.Minute)
	for _, f := range []string{certFile, keyFile} {
		if err := os.Chtimes(f, later, later); err != nil {
			t.Fatal(err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r.Leaf().Subject.CommonName == "second" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("certificate not reloaded, CN = %q", r.Leaf().Subject.CommonName)
}

func TestCertificateReloader_KeepsPreviousOnBadReload(t *testing.T) {
	certFile, keyFile := validPair(t, "keep")
	r := NewCertificateReloader(certFile, keyFile, 0)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(certFile, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.reload(); err == nil {
		t.Fatal("expected reload error for garbage certificate")
	}
	if r.Leaf().Subject.CommonName != "keep" {
		t.Error("previous certificate should stay active")
	}
}
