package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/edge/pkg/cli"
	tlsx "mercator-hq/edge/pkg/security/tls"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage TLS certificates",
	Long: `Manage TLS certificates for the edge server.

Subcommands:
  generate - Generate a self-signed certificate for testing
  info     - Display certificate details

Examples:
  # Generate a self-signed certificate for localhost
  edge certs generate --host localhost

  # Display certificate information
  edge certs info certs/cert.pem`,
}

var generateFlags struct {
	hosts    string
	org      string
	validity int
	keySize  int
	output   string
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate self-signed certificate",
	Long: `Generate a self-signed TLS certificate and private key.

The pair is written as cert.pem and key.pem (mode 0600) in the output
directory and matches the tls.cert_file and tls.key_file defaults.

⚠️  WARNING: Self-signed certificates are for TESTING ONLY!

Examples:
  # Generate certificate for localhost
  edge certs generate --host localhost

  # Generate with multiple hosts
  edge certs generate --host "localhost,127.0.0.1,app.local" --out certs/`,
	RunE: generateCertificate,
}

var infoFlags struct {
	format string
}

var certsInfoCmd = &cobra.Command{
	Use:   "info [cert-file]",
	Short: "Display certificate details",
	Long: `Display the subject, issuer, validity period and SANs of a PEM certificate.

Examples:
  edge certs info certs/cert.pem
  edge certs info --format json certs/cert.pem`,
	Args: cobra.ExactArgs(1),
	RunE: displayCertInfo,
}

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.AddCommand(certsGenerateCmd)
	certsCmd.AddCommand(certsInfoCmd)

	certsGenerateCmd.Flags().StringVar(&generateFlags.hosts, "host", "localhost", "comma-separated hostnames and IPs")
	certsGenerateCmd.Flags().StringVar(&generateFlags.org, "org", "jupiter-edge", "organization name")
	certsGenerateCmd.Flags().IntVar(&generateFlags.validity, "validity", 365, "validity in days")
	certsGenerateCmd.Flags().IntVar(&generateFlags.keySize, "key-size", 2048, "RSA key size (2048, 3072, 4096)")
	certsGenerateCmd.Flags().StringVarP(&generateFlags.output, "out", "o", "certs", "output directory")

	certsInfoCmd.Flags().StringVar(&infoFlags.format, "format", "text", "output format: text, json")
}

func parseHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func generateCertificate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	hosts := parseHosts(generateFlags.hosts)
	if len(hosts) == 0 {
		return cli.NewConfigError("host", "at least one host is required")
	}
	if generateFlags.validity <= 0 {
		return cli.NewConfigError("validity", "must be a positive number of days")
	}

	if err := os.MkdirAll(generateFlags.output, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	certPath := filepath.Join(generateFlags.output, "cert.pem")
	keyPath := filepath.Join(generateFlags.output, "key.pem")

	fmt.Fprintf(out, "Generating %d-bit RSA self-signed certificate...\n", generateFlags.keySize)
	cert, err := tlsx.GenerateSelfSigned(certPath, keyPath, tlsx.SelfSignedOptions{
		Hosts:        hosts,
		Organization: generateFlags.org,
		ValidFor:     time.Duration(generateFlags.validity) * 24 * time.Hour,
		KeySize:      generateFlags.keySize,
	})
	if err != nil {
		return cli.NewCommandError("certs generate", err)
	}

	fmt.Fprintf(out, "✓ Certificate: %s\n", certPath)
	fmt.Fprintf(out, "✓ Private key: %s\n", keyPath)
	fmt.Fprintf(out, "  Hosts:       %s\n", strings.Join(hosts, ", "))
	fmt.Fprintf(out, "  Valid until: %s\n", cert.NotAfter.Format(time.RFC3339))
	fmt.Fprintln(out, "\n⚠️  Self-signed certificates are for TESTING ONLY!")
	return nil
}

// certReport renders a certificate for "certs info".
type certReport struct {
	*tlsx.CertificateInfo
	DaysUntilExpiry int    `json:"days_until_expiry"`
	Warning         string `json:"warning,omitempty"`
}

func (r *certReport) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Subject:        %s\n", r.Subject)
	fmt.Fprintf(&sb, "Issuer:         %s\n", r.Issuer)
	fmt.Fprintf(&sb, "Serial Number:  %s\n", r.SerialNumber)
	fmt.Fprintf(&sb, "Not Before:     %s\n", r.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Not After:      %s (%d days)\n", r.NotAfter.Format(time.RFC3339), r.DaysUntilExpiry)
	if len(r.DNSNames) > 0 {
		fmt.Fprintf(&sb, "DNS Names:      %s\n", strings.Join(r.DNSNames, ", "))
	}
	if len(r.IPAddresses) > 0 {
		fmt.Fprintf(&sb, "IP Addresses:   %s\n", strings.Join(r.IPAddresses, ", "))
	}
	fmt.Fprintf(&sb, "Signature:      %s\n", r.SignatureAlgorithm)
	fmt.Fprintf(&sb, "Public Key:     %s\n", r.PublicKeyAlgorithm)
	if r.Warning != "" {
		fmt.Fprintf(&sb, "\n⚠️  %s\n", r.Warning)
	}
	return sb.String()
}

func displayCertInfo(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(infoFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	cert, err := tlsx.LoadCertificateFile(args[0])
	if err != nil {
		return cli.NewCommandError("certs info", err)
	}

	days, warning := tlsx.CheckCertificateExpiration(cert)
	report := &certReport{
		CertificateInfo: tlsx.ExtractCertificateInfo(cert),
		DaysUntilExpiry: days,
		Warning:         warning,
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report)
}
