package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/edge/pkg/cli"
	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/pipeline"
	"mercator-hq/edge/pkg/scheduler"
	tlsx "mercator-hq/edge/pkg/security/tls"
	"mercator-hq/edge/pkg/server"
	"mercator-hq/edge/pkg/telemetry/accesslog"
	"mercator-hq/edge/pkg/telemetry/health"
	"mercator-hq/edge/pkg/telemetry/logging"
	"mercator-hq/edge/pkg/telemetry/metrics"
	"mercator-hq/edge/pkg/telemetry/tracing"
	"mercator-hq/edge/pkg/upstream"
)

// healthSweepInterval is how often the upstream health checker wakes up.
// Each pool is still probed at its own health_check.interval.
const healthSweepInterval = time.Second

var runFlags struct {
	host   string
	port   int
	dryRun bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the edge server",
	Long: `Start the edge server with the specified configuration.

When the configuration file cannot be loaded the server starts with the
built-in defaults on --host and --port. SIGHUP reloads the configuration;
the file is also watched for changes.

Examples:
  # Start with ./config.yaml
  edge run

  # Start with a custom config
  edge run --config /etc/edge/config.yaml

  # Override the listen address
  edge run --host 127.0.0.1 --port 8443

  # Validate config without starting server
  edge run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.host, "host", "0.0.0.0", "listen host")
	runCmd.Flags().IntVarP(&runFlags.port, "port", "p", 8080, "listen port")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

// loadRunConfig loads cfgFile. It falls back to the defaults bound to
// --host:--port when the file cannot be loaded. The returned error is the
// load failure that caused the fallback, if any.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	address := net.JoinHostPort(runFlags.host, strconv.Itoa(runFlags.port))

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return config.DefaultWithListen(address), err
	}

	if cmd.Flags().Changed("host") || cmd.Flags().Changed("port") {
		cfg.Server.Listeners = []config.ListenerConfig{{Address: address}}
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, loadErr := loadRunConfig(cmd)
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := logging.Setup(cfg.Logging, os.Stderr); err != nil {
		return cli.NewConfigError("logging", err.Error())
	}

	fallback := loadErr != nil
	if fallback {
		// A file that exists but is invalid is never silently replaced.
		var validation config.ValidationError
		if errors.As(loadErr, &validation) {
			return cli.NewConfigFileError(cfgFile, loadErr)
		}
		slog.Warn("failed to load configuration, starting with defaults",
			"path", cfgFile,
			"error", loadErr,
			"listen", cfg.Server.Listeners[0].Address,
		)
	}

	if runFlags.dryRun {
		if fallback {
			return cli.NewConfigFileError(cfgFile, loadErr)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	printBanner(cmd, cfg, fallback)

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return cli.NewConfigError("tracing", err.Error())
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	collector := metrics.NewCollector(&cfg.Metrics, prometheus.NewRegistry())
	collector.RegisterRuntimeCollectors()

	access, err := accesslog.New(cfg.Logging.AccessLog)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open access log: %w", err))
	}
	defer func() {
		if err := access.Close(); err != nil {
			slog.Warn("failed to close access log", "error", err)
		}
	}()

	store := config.NewStore(cfg)
	opts := pipeline.Options{Metrics: collector}
	if access != nil {
		opts.AccessLog = access
	}
	p, err := pipeline.New(store, opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pipeline ready (%d virtual hosts, %d upstreams)\n",
		len(cfg.VirtualHosts), len(cfg.Upstreams))

	tlsConfig, err := setupTLS(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	checker := health.New(2 * time.Second)
	hc := upstream.NewHealthChecker(p.Registry, collector)
	checker.RegisterCheck("upstreams", hc.ReadinessCheck())
	go hc.Run(ctx, healthSweepInterval)

	sched, err := newScheduler(cfg, p, access)
	if err != nil {
		return cli.NewConfigError("scheduler", err.Error())
	}
	sched.Start(ctx)
	defer sched.Stop()
	for _, name := range sched.Jobs() {
		if next, ok := sched.NextRun(name); ok {
			slog.Debug("maintenance job scheduled", "job", name, "next_run", next)
		}
	}

	if !fallback {
		stopWatch, err := watchConfig(ctx, store)
		if err != nil {
			slog.Warn("configuration hot reload disabled", "error", err)
		} else {
			defer stopWatch()
		}
	}

	if cfg.Admin.Address != "" {
		admin, err := server.NewAdmin(cfg.Admin.Address,
			server.AdminHandler(collector, checker, cfg.Metrics.Path, buildInfo()))
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		go func() {
			if err := admin.Serve(); err != nil {
				slog.Error("admin listener stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = admin.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Admin endpoint: http://%s%s\n", admin.Addr(), health.ReadyPath)
	}

	srv, err := server.New(cfg.Server,
		pipeline.Handler(p, tracer, cfg.Server.RequestTimeout),
		server.Options{TLSConfig: tlsConfig, Metrics: collector, Health: checker},
	)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	if err := srv.Listen(); err != nil {
		return cli.NewCommandError("run", err)
	}
	for _, addr := range srv.Addrs() {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", addr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	if err := srv.Serve(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// setupTLS prepares the certificate pair and the reloading tls.Config. It
// returns nil when no listener uses TLS.
func setupTLS(ctx context.Context, cfg *config.Config) (*tls.Config, error) {
	needed := false
	for _, l := range cfg.Server.Listeners {
		needed = needed || l.TLS
	}
	if !needed {
		return nil, nil
	}

	if err := tlsx.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.AutoGenerateSelfSigned); err != nil {
		return nil, err
	}

	reloader := tlsx.NewCertificateReloader(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ReloadInterval)
	if err := reloader.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	tlsConfig, err := tlsx.NewConfig(cfg.TLS).ToTLSConfig(reloader)
	if err != nil {
		return nil, fmt.Errorf("invalid tls configuration: %w", err)
	}
	return tlsConfig, nil
}

// newScheduler registers the maintenance jobs: limiter eviction always,
// access log rotation and pruning when those sinks exist.
func newScheduler(cfg *config.Config, p *pipeline.Pipeline, access *accesslog.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New()

	if err := s.Add(scheduler.JobRateLimitEvict, cfg.Security.RateLimitSweep, scheduler.EvictJob(p.Limiter)); err != nil {
		return nil, err
	}

	if access != nil && access.Rotator != nil {
		if err := s.Add(scheduler.JobAccessLogRotate, cfg.Logging.AccessLog.Rotate.Schedule, scheduler.RotateJob(access.Rotator)); err != nil {
			return nil, err
		}
	}

	if access != nil && access.SQLite != nil && cfg.Logging.AccessLog.SQLite.Retention > 0 {
		job := scheduler.PruneJob(access.SQLite, cfg.Logging.AccessLog.SQLite.Retention)
		if err := s.Add(scheduler.JobAccessLogPrune, "@every 1h", job); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// watchConfig reloads the configuration file on change and on SIGHUP. The
// returned function stops both.
func watchConfig(ctx context.Context, store *config.Store) (func(), error) {
	watcher, err := config.NewWatcher(cfgFile, store, 0)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
			slog.Error("config watcher stopped", "error", err)
		}
	}()

	hup, stopSignals := cli.ReloadSignals()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				slog.Info("received SIGHUP, reloading configuration", "path", cfgFile)
				_ = watcher.Reload()
			}
		}
	}()

	return func() {
		stopSignals()
		_ = watcher.Stop()
	}, nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config, fallback bool) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Edge v%s\n", Version)
	if fallback {
		fmt.Fprintln(out, "! Configuration not loaded, using defaults")
	} else {
		fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
		fmt.Fprintln(out, "✓ Configuration loaded")
	}

	slog.Debug("configuration summary",
		"listeners", len(cfg.Server.Listeners),
		"virtual_hosts", len(cfg.VirtualHosts),
		"upstreams", len(cfg.Upstreams),
		"rate_limiting", cfg.Security.EnableRateLimiting,
		"tracing", cfg.Tracing.Enabled,
	)
}
