package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/edge/pkg/cli"
	"mercator-hq/edge/pkg/config"
)

var configValidateFlags struct {
	output string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect edge configuration files",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the server.

Environment overrides (EDGE_*) are applied before validation, exactly as
"edge run" applies them. Every invalid field is reported.

Examples:
  # Validate ./config.yaml
  edge config validate

  # Validate another file and print JSON
  edge config validate --config /etc/edge/config.yaml --output json`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)

	configValidateCmd.Flags().StringVarP(&configValidateFlags.output, "output", "o", "text", "output format (text, json)")
}

// validationReport is the result of "config validate".
type validationReport struct {
	Path         string   `json:"path"`
	Valid        bool     `json:"valid"`
	Errors       []string `json:"errors,omitempty"`
	Listeners    []string `json:"listeners,omitempty"`
	VirtualHosts []string `json:"virtual_hosts,omitempty"`
	Upstreams    []string `json:"upstreams,omitempty"`
}

func (r *validationReport) Text() string {
	var sb strings.Builder
	if !r.Valid {
		fmt.Fprintf(&sb, "✗ %s is invalid:\n", r.Path)
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "  - %s\n", e)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "✓ %s is valid\n", r.Path)
	fmt.Fprintf(&sb, "  Listeners:     %s\n", list(r.Listeners))
	fmt.Fprintf(&sb, "  Virtual hosts: %s\n", list(r.VirtualHosts))
	fmt.Fprintf(&sb, "  Upstreams:     %s\n", list(r.Upstreams))
	return sb.String()
}

func list(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// validateFile loads path the way "edge run" does and reports every
// validation failure. The error is non-nil only when the file could not be
// read or parsed.
func validateFile(path string) (*validationReport, error) {
	report := &validationReport{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Parse(data)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		var validation config.ValidationError
		if !errors.As(err, &validation) {
			return nil, err
		}
		for _, fe := range validation.Errors {
			report.Errors = append(report.Errors, fe.Error())
		}
		return report, nil
	}

	report.Valid = true
	for _, l := range cfg.Server.Listeners {
		addr := l.Address
		if l.TLS {
			addr += " (tls)"
		}
		report.Listeners = append(report.Listeners, addr)
	}
	for name := range cfg.VirtualHosts {
		report.VirtualHosts = append(report.VirtualHosts, name)
	}
	for name := range cfg.Upstreams {
		report.Upstreams = append(report.Upstreams, name)
	}
	sort.Strings(report.VirtualHosts)
	sort.Strings(report.Upstreams)
	return report, nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(configValidateFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}

	report, err := validateFile(cfgFile)
	if err != nil {
		return cli.NewConfigFileError(cfgFile, err)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return cli.NewCommandError("config validate", err)
	}

	if !report.Valid {
		return &cli.ConfigError{
			Path:    cfgFile,
			Message: fmt.Sprintf("%d validation errors", len(report.Errors)),
		}
	}
	return nil
}
