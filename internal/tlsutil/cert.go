// Package tlsutil resolves the server key pair for local HTTPS, falling
// back to a self-signed certificate when none is configured.
package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	certFileName = "server.crt"
	keyFileName  = "server.key"

	// Rotation is deleting the store path; a year outlives any local
	// mock setup.
	selfSignedValidity = 365 * 24 * time.Hour
)

// CertificateManager resolves the key pair from three places in order:
// explicitly configured files, a previously generated pair in the store
// path, or a freshly self-signed certificate.
type CertificateManager struct {
	certFile  string
	keyFile   string
	storePath string
}

// NewCertificateManager creates a new certificate manager
func NewCertificateManager(certFile, keyFile, storePath string) *CertificateManager {
	return &CertificateManager{
		certFile:  certFile,
		keyFile:   keyFile,
		storePath: storePath,
	}
}

// GetCertificate resolves the server certificate. Configured files that
// fail to load are an error rather than a fallback, so a typo in the
// config never silently serves a self-signed certificate.
func (cm *CertificateManager) GetCertificate(autoGenerate bool) (*tls.Certificate, error) {
	if cm.certFile != "" && cm.keyFile != "" {
		cert, err := tls.LoadX509KeyPair(cm.certFile, cm.keyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate from %s and %s: %w", cm.certFile, cm.keyFile, err)
		}
		return &cert, nil
	}

	if cert, err := tls.LoadX509KeyPair(cm.storedCertPath(), cm.storedKeyPath()); err == nil {
		return &cert, nil
	}

	if !autoGenerate {
		return nil, errors.New("no TLS certificate found and auto-generation is disabled")
	}
	return cm.selfSign()
}

// GetCertificatePaths returns where the effective key pair lives
func (cm *CertificateManager) GetCertificatePaths() (certPath, keyPath string) {
	if cm.certFile != "" && cm.keyFile != "" {
		return cm.certFile, cm.keyFile
	}
	return cm.storedCertPath(), cm.storedKeyPath()
}

func (cm *CertificateManager) storedCertPath() string {
	return filepath.Join(cm.storePath, certFileName)
}

func (cm *CertificateManager) storedKeyPath() string {
	return filepath.Join(cm.storePath, keyFileName)
}

// selfSign generates an ECDSA P-256 key pair for localhost and the host's
// interface addresses, persists it under the store path, and returns it.
func (cm *CertificateManager) selfSign() (*tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	tpl := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"MockAPI"},
			CommonName:   "MockAPI Self-Signed",
		},
		NotBefore:             now,
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           serverAddresses(),
	}

	der, err := x509.CreateCertificate(rand.Reader, &tpl, &tpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	if err := cm.persist(certPEM, keyPEM); err != nil {
		return nil, err
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated certificate: %w", err)
	}
	return &cert, nil
}

// persist writes the PEM pair into the store path, key readable by the
// server process only.
func (cm *CertificateManager) persist(certPEM, keyPEM []byte) error {
	if err := os.MkdirAll(cm.storePath, 0700); err != nil {
		return fmt.Errorf("failed to create certificate store directory: %w", err)
	}
	if err := os.WriteFile(cm.storedCertPath(), certPEM, 0644); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	if err := os.WriteFile(cm.storedKeyPath(), keyPEM, 0600); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	return nil
}

// serverAddresses is loopback plus every non-loopback interface address,
// so the generated certificate also works for clients on the LAN.
func serverAddresses() []net.IP {
	ips := []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP("::1")}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ips
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			ips = append(ips, ipnet.IP)
		}
	}
	return ips
}
