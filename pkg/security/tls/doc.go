/*
Package tls builds the server side TLS configuration for edge listeners.

# Server Configuration

Config wraps the tls section of the edge configuration. ToTLSConfig sets
the minimum version (1.2 or 1.3), optional TLS 1.2 cipher suites and the
ALPN list the protocol multiplexer dispatches on:

	reloader := tls.NewCertificateReloader(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ReloadInterval)
	if err := reloader.Start(ctx); err != nil {
		return err
	}

	tlsConfig, err := tls.NewConfig(cfg.TLS).ToTLSConfig(reloader)
	if err != nil {
		return err
	}

# Certificate Reloading

CertificateReloader polls the certificate and key modification times and
swaps the pair when either changes. A failed reload keeps the previous
certificate in service. Reload can also be called directly, for example
from a SIGHUP handler.

# Self-Signed Certificates

EnsureCertificate is called at startup. Present files are used as is.
Missing files are generated (RSA 2048, CN=localhost, 365 days, key mode
0600) only when auto_generate_self_signed is set; otherwise startup fails
with ErrCertificateMissing.

Self-signed certificates are for development only.
*/
package tls
