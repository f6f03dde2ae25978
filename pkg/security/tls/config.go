package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"mercator-hq/edge/pkg/config"
)

// ErrNoCertificate is returned by GetCertificate before a pair was loaded.
var ErrNoCertificate = errors.New("tls: no certificate loaded")

// Config turns the tls section of the edge configuration into a
// crypto/tls server configuration.
type Config struct {
	config.TLSConfig
}

// NewConfig wraps cfg.
func NewConfig(cfg config.TLSConfig) *Config {
	return &Config{TLSConfig: cfg}
}

// ToTLSConfig builds a server tls.Config. Certificates are taken from
// reloader on every handshake, so a renewed pair is picked up without
// rebuilding the listener.
//
// NextProtos is the configured ALPN list in preference order. An empty
// list falls back to h2 then http/1.1.
func (c *Config) ToTLSConfig(reloader *CertificateReloader) (*tls.Config, error) {
	if reloader == nil {
		return nil, fmt.Errorf("tls: certificate reloader is required")
	}

	minVersion, err := ParseVersion(c.MinVersion)
	if err != nil {
		return nil, err
	}
	suites, err := ParseCipherSuites(c.CipherSuites)
	if err != nil {
		return nil, err
	}

	protos := c.ALPN
	if len(protos) == 0 {
		protos = config.DefaultALPN()
	}

	// #nosec G402 - MinVersion is validated, TLS 1.0/1.1 are rejected
	return &tls.Config{
		MinVersion:     minVersion,
		CipherSuites:   suites,
		NextProtos:     append([]string(nil), protos...),
		GetCertificate: reloader.GetCertificateFunc(),
	}, nil
}

// ParseVersion converts "1.2" or "1.3" into a tls version constant.
// The empty string means TLS 1.2.
func ParseVersion(v string) (uint16, error) {
	switch strings.TrimSpace(v) {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("tls: unsupported min_version %q (use 1.2 or 1.3)", v)
	}
}

// ParseCipherSuites maps suite names to their IDs. Nil means Go's defaults.
// TLS 1.3 suites are accepted but have no effect since crypto/tls does not
// allow configuring them.
func ParseCipherSuites(names []string) ([]uint16, error) {
	if len(names) == 0 {
		return nil, nil
	}

	suites := make([]uint16, 0, len(names))
	for _, name := range names {
		id, ok := cipherSuiteMap[name]
		if !ok {
			return nil, fmt.Errorf("tls: unknown cipher suite %q", name)
		}
		suites = append(suites, id)
	}
	return suites, nil
}

// cipherSuiteMap maps cipher suite names to their tls package constants.
// Only secure cipher suites are included.
var cipherSuiteMap = map[string]uint16{
	"TLS_AES_128_GCM_SHA256":       tls.TLS_AES_128_GCM_SHA256,
	"TLS_AES_256_GCM_SHA384":       tls.TLS_AES_256_GCM_SHA384,
	"TLS_CHACHA20_POLY1305_SHA256": tls.TLS_CHACHA20_POLY1305_SHA256,

	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305":    tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305":  tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
}
