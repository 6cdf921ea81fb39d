package tlsutil

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
)

func TestGetCertificate_AutoGenerate(t *testing.T) {
	dir := t.TempDir()
	cm := NewCertificateManager("", "", dir)

	cert, err := cm.GetCertificate(true)
	if err != nil {
		t.Fatalf("GetCertificate failed: %v", err)
	}
	if cert == nil || len(cert.Certificate) == 0 {
		t.Fatal("no certificate generated")
	}

	// Both files land in the store path
	for _, name := range []string{certFileName, keyFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("generated certificate unparseable: %v", err)
	}
	if len(parsed.DNSNames) == 0 || parsed.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", parsed.DNSNames)
	}
}

func TestGetCertificate_ReusesStoredCertificate(t *testing.T) {
	dir := t.TempDir()

	first, err := NewCertificateManager("", "", dir).GetCertificate(true)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// A second manager with autoGenerate off must load the stored pair
	second, err := NewCertificateManager("", "", dir).GetCertificate(false)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(first.Certificate[0]) != string(second.Certificate[0]) {
		t.Error("stored certificate was not reused")
	}
}

func TestGetCertificate_NoAutoGenerate(t *testing.T) {
	cm := NewCertificateManager("", "", t.TempDir())

	if _, err := cm.GetCertificate(false); err == nil {
		t.Error("expected error with no certificate and autoGenerate off")
	}
}

func TestGetCertificate_ConfiguredPathsMissing(t *testing.T) {
	cm := NewCertificateManager("/nope/cert.pem", "/nope/key.pem", t.TempDir())

	if _, err := cm.GetCertificate(true); err == nil {
		t.Error("expected error for unreadable configured key pair")
	}
}

func TestGetCertificatePaths(t *testing.T) {
	cm := NewCertificateManager("/etc/ssl/cert.pem", "/etc/ssl/key.pem", "/tmp/certs")
	certPath, keyPath := cm.GetCertificatePaths()
	if certPath != "/etc/ssl/cert.pem" || keyPath != "/etc/ssl/key.pem" {
		t.Errorf("configured paths: %s, %s", certPath, keyPath)
	}

	cm = NewCertificateManager("", "", "/var/lib/certs")
	certPath, keyPath = cm.GetCertificatePaths()
	if certPath != filepath.Join("/var/lib/certs", certFileName) {
		t.Errorf("store cert path: %s", certPath)
	}
	if keyPath != filepath.Join("/var/lib/certs", keyFileName) {
		t.Errorf("store key path: %s", keyPath)
	}
}
