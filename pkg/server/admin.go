package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mercator-hq/edge/pkg/telemetry/health"
	"mercator-hq/edge/pkg/telemetry/metrics"
)

// BuildInfo is reported by the admin version endpoint.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// AdminHandler serves the Prometheus endpoint at metricsPath and the
// health endpoints. collector may be nil.
func AdminHandler(collector *metrics.Collector, checker *health.Checker, metricsPath string, build BuildInfo) http.Handler {
	mux := http.NewServeMux()
	health.Register(mux, checker, build.Version, build.Commit, build.BuildTime)
	if collector != nil && metricsPath != "" {
		mux.Handle(metricsPath, collector.Handler())
	}
	return mux
}

// Admin is the management listener. It is plain HTTP/1.1 and is meant to
// be bound to a private address.
type Admin struct {
	srv *http.Server
	ln  net.Listener
}

// NewAdmin binds address.
func NewAdmin(address string, handler http.Handler) (*Admin, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on admin address %s: %w", address, err)
	}
	return &Admin{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ln: ln,
	}, nil
}

// Addr returns the bound address.
func (a *Admin) Addr() net.Addr {
	return a.ln.Addr()
}

// Serve blocks until Shutdown.
func (a *Admin) Serve() error {
	slog.Info("admin listener started", "address", a.ln.Addr().String())
	if err := a.srv.Serve(a.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listener failed: %w", err)
	}
	return nil
}

// Shutdown stops the admin listener.
func (a *Admin) Shutdown(ctx context.Context) error {
	return a.srv.Shutdown(ctx)
}
