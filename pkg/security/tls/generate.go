package tls

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// ErrCertificateMissing is returned by EnsureCertificate when the pair is
// absent and generation is disabled.
var ErrCertificateMissing = errors.New("tls: certificate files not found")

// SelfSignedOptions controls GenerateSelfSigned.
type SelfSignedOptions struct {
	// Hosts become DNS or IP SANs. The first entry is the common name.
	// Default: ["localhost"]
	Hosts []string

	// Organization is the subject organization.
	Organization string

	// ValidFor is the certificate lifetime. Default: 365 days.
	ValidFor time.Duration

	// KeySize is the RSA modulus size in bits: 2048, 3072 or 4096.
	// Default: 2048
	KeySize int
}

func (o SelfSignedOptions) withDefaults() SelfSignedOptions {
	if len(o.Hosts) == 0 {
		o.Hosts = []string{"localhost"}
	}
	if o.Organization == "" {
		o.Organization = "jupiter-edge"
	}
	if o.ValidFor <= 0 {
		o.ValidFor = 365 * 24 * time.Hour
	}
	if o.KeySize == 0 {
		o.KeySize = 2048
	}
	return o
}

// EnsureCertificate makes sure certFile and keyFile exist. When either is
// missing and auto is set, a self-signed pair for localhost is written in
// their place. When auto is not set the error wraps ErrCertificateMissing.
func EnsureCertificate(certFile, keyFile string, auto bool) error {
	certOK, err := exists(certFile)
	if err != nil {
		return err
	}
	keyOK, err := exists(keyFile)
	if err != nil {
		return err
	}
	if certOK && keyOK {
		return nil
	}

	if !auto {
		return fmt.Errorf("%w: %s and %s (auto_generate_self_signed is disabled)",
			ErrCertificateMissing, certFile, keyFile)
	}

	slog.Warn("certificate files missing, generating a self-signed pair",
		"cert_file", certFile,
		"key_file", keyFile,
	)
	if _, err := GenerateSelfSigned(certFile, keyFile, SelfSignedOptions{}); err != nil {
		return err
	}
	slog.Warn("serving a self-signed certificate; replace it with a CA-issued one for production")
	return nil
}

// GenerateSelfSigned writes a PEM certificate and an RSA private key. The
// key file is created with mode 0600. The parsed certificate is returned.
func GenerateSelfSigned(certFile, keyFile string, opts SelfSignedOptions) (*x509.Certificate, error) {
	opts = opts.withDefaults()
	switch opts.KeySize {
	case 2048, 3072, 4096:
	default:
		return nil, fmt.Errorf("tls: invalid key size %d (must be 2048, 3072 or 4096)", opts.KeySize)
	}

	var dnsNames []string
	var ips []net.IP
	for _, host := range opts.Hosts {
		if ip := net.ParseIP(host); ip != nil {
			ips = append(ips, ip)
		} else {
			dnsNames = append(dnsNames, host)
		}
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, opts.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now().Add(-time.Minute)
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{opts.Organization},
			CommonName:   opts.Hosts[0],
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(opts.ValidFor),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ips,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	if err := writePEM(certFile, 0644, &pem.Block{Type: "CERTIFICATE", Bytes: der}); err != nil {
		return nil, fmt.Errorf("failed to write certificate: %w", err)
	}
	keyBlock := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)}
	if err := writePEM(keyFile, 0600, keyBlock); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}

	return x509.ParseCertificate(der)
}

func writePEM(path string, mode os.FileMode, block *pem.Block) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, block); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// OpenFile honours umask and leaves the mode of an existing file alone.
	return os.Chmod(path, mode)
}

func exists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
