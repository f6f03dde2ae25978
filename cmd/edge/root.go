package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/edge/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "edge",
	Short: "Edge - HTTP edge server",
	Long: `Edge is an HTTP edge server. It sits between clients and backend services
and provides, in one request pipeline:
  - Virtual host and location routing
  - Static file serving with conditional requests
  - Load-balanced reverse proxying with health checks
  - HTTP/2 over TLS via ALPN
  - Compression, rate limiting and security headers`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (forces debug logging)")
}
