package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	tlsx "mercator-hq/edge/pkg/security/tls"
)

func TestParseHosts(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"localhost", []string{"localhost"}},
		{"localhost, 127.0.0.1 ,app.local", []string{"localhost", "127.0.0.1", "app.local"}},
		{" , ", nil},
	}

	for _, tt := range tests {
		if got := parseHosts(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseHosts(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateCertificate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	orig := generateFlags
	defer func() { generateFlags = orig }()

	generateFlags.hosts = "localhost,127.0.0.1"
	generateFlags.org = "Test Org"
	generateFlags.validity = 30
	generateFlags.keySize = 2048
	generateFlags.output = dir

	var buf bytes.Buffer
	certsGenerateCmd.SetOut(&buf)
	defer certsGenerateCmd.SetOut(nil)

	if err := generateCertificate(certsGenerateCmd, nil); err != nil {
		t.Fatalf("generateCertificate() error = %v", err)
	}

	cert, err := tlsx.LoadCertificateFile(filepath.Join(dir, "cert.pem"))
	if err != nil {
		t.Fatalf("LoadCertificateFile() error = %v", err)
	}
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v, want [localhost]", cert.DNSNames)
	}
	if len(cert.IPAddresses) != 1 || cert.IPAddresses[0].String() != "127.0.0.1" {
		t.Errorf("IPAddresses = %v, want [127.0.0.1]", cert.IPAddresses)
	}

	info, err := os.Stat(filepath.Join(dir, "key.pem"))
	if err != nil {
		t.Fatalf("key file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("key permissions = %o, want 600", perm)
	}

	if !strings.Contains(buf.String(), "✓ Certificate:") {
		t.Errorf("output = %q, want a certificate line", buf.String())
	}
}

func TestGenerateCertificate_InvalidFlags(t *testing.T) {
	orig := generateFlags
	defer func() { generateFlags = orig }()

	tests := []struct {
		name   string
		mutate func()
	}{
		{"no hosts", func() { generateFlags.hosts = " " }},
		{"zero validity", func() { generateFlags.validity = 0 }},
		{"bad key size", func() { generateFlags.keySize = 1024 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generateFlags = orig
			generateFlags.output = t.TempDir()
			tt.mutate()
			if err := generateCertificate(certsGenerateCmd, nil); err == nil {
				t.Error("generateCertificate() should fail")
			}
		})
	}
}

func TestDisplayCertInfo(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	if _, err := tlsx.GenerateSelfSigned(certPath, filepath.Join(dir, "key.pem"), tlsx.SelfSignedOptions{Hosts: []string{"app.local"}}); err != nil {
		t.Fatalf("GenerateSelfSigned() error = %v", err)
	}

	orig := infoFlags
	defer func() { infoFlags = orig }()

	t.Run("text", func(t *testing.T) {
		infoFlags.format = "text"
		var buf bytes.Buffer
		certsInfoCmd.SetOut(&buf)
		defer certsInfoCmd.SetOut(nil)

		if err := displayCertInfo(certsInfoCmd, []string{certPath}); err != nil {
			t.Fatalf("displayCertInfo() error = %v", err)
		}
		if !strings.Contains(buf.String(), "DNS Names:      app.local") {
			t.Errorf("output missing DNS names:\n%s", buf.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		infoFlags.format = "json"
		var buf bytes.Buffer
		certsInfoCmd.SetOut(&buf)
		defer certsInfoCmd.SetOut(nil)

		if err := displayCertInfo(certsInfoCmd, []string{certPath}); err != nil {
			t.Fatalf("displayCertInfo() error = %v", err)
		}
		var got struct {
			DNSNames        []string
			DaysUntilExpiry int `json:"days_until_expiry"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", buf.String(), err)
		}
		if len(got.DNSNames) != 1 || got.DNSNames[0] != "app.local" {
			t.Errorf("DNSNames = %v, want [app.local]", got.DNSNames)
		}
		if got.DaysUntilExpiry < 363 {
			t.Errorf("days_until_expiry = %d, want about 365", got.DaysUntilExpiry)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		infoFlags.format = "text"
		if err := displayCertInfo(certsInfoCmd, []string{filepath.Join(dir, "nope.pem")}); err == nil {
			t.Error("displayCertInfo() should fail for a missing file")
		}
	})
}
