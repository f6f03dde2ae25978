package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/netutil"

	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/telemetry/health"
	"mercator-hq/edge/pkg/telemetry/metrics"
)

// Options are the collaborators of a Server.
type Options struct {
	// TLSConfig is required when any listener has tls: true.
	TLSConfig *tls.Config

	Metrics *metrics.Collector

	// Health is switched to draining when shutdown starts. May be nil.
	Health *health.Checker
}

// Server accepts client connections on every configured listener and
// hands each one to the HTTP/1.1 or HTTP/2 loop.
//
// Listener addresses and connection limits are fixed for the lifetime of a
// Server; everything per request is read through the handler.
type Server struct {
	cfg     config.ServerConfig
	handler http.Handler
	opts    Options

	h1     *http.Server
	h2     *http2.Server
	h1Conn *connQueue

	mu        sync.Mutex
	listeners []*listener
	active    map[*trackedConn]struct{}
	isRunning bool

	conns        sync.WaitGroup
	shutdownOnce sync.Once
	shutdownErr  error
}

type listener struct {
	net.Listener
	addr string
	tls  bool
}

// New creates a server for cfg. Nothing is bound until Listen.
func New(cfg config.ServerConfig, handler http.Handler, opts Options) (*Server, error) {
	for _, l := range cfg.Listeners {
		if l.TLS && opts.TLSConfig == nil {
			return nil, fmt.Errorf("listener %s has tls enabled but no TLS configuration was provided", l.Address)
		}
	}

	s := &Server{
		cfg:     cfg,
		handler: handler,
		opts:    opts,
		h1Conn:  newConnQueue(),
		active:  make(map[*trackedConn]struct{}),
	}

	s.h1 = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.KeepAliveTimeout,
		ErrorLog:          slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug),
	}
	s.h2 = &http2.Server{
		IdleTimeout: cfg.KeepAliveTimeout,
	}
	// Registers the HTTP/2 graceful shutdown with h1.Shutdown. Connections
	// negotiated as h2 never reach h1 itself.
	if err := http2.ConfigureServer(s.h1, s.h2); err != nil {
		return nil, fmt.Errorf("failed to configure http2: %w", err)
	}

	return s, nil
}

// Listen binds every configured listener. Each one is capped at
// max_connections open connections.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.listeners) > 0 {
		return errors.New("server is already listening")
	}

	for _, lc := range s.cfg.Listeners {
		ln, err := net.Listen("tcp", lc.Address)
		if err != nil {
			for _, l := range s.listeners {
				l.Close()
			}
			s.listeners = nil
			return fmt.Errorf("failed to listen on %s: %w", lc.Address, err)
		}

		var wrapped net.Listener = &noDelayListener{Listener: ln, noDelay: s.cfg.TCPNoDelay}
		if s.cfg.MaxConnections > 0 {
			wrapped = netutil.LimitListener(wrapped, s.cfg.MaxConnections)
		}
		s.listeners = append(s.listeners, &listener{Listener: wrapped, addr: lc.Address, tls: lc.TLS})
	}
	return nil
}

// Addrs returns the bound listener addresses in configuration order.
func (s *Server) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, len(s.listeners))
	for i, l := range s.listeners {
		addrs[i] = l.Addr()
	}
	return addrs
}

// Serve runs the accept loops until ctx is cancelled, then shuts down
// gracefully within shutdown_timeout. Listen must have been called.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return errors.New("server has no listeners")
	}
	s.isRunning = true
	listeners := s.listeners
	s.mu.Unlock()

	errChan := make(chan error, len(listeners)+1)

	go func() {
		if err := s.h1.Serve(s.h1Conn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http/1.1 loop failed: %w", err)
		}
	}()

	for _, l := range listeners {
		slog.Info("listening",
			"address", l.Addr().String(),
			"tls", l.tls,
			"max_connections", s.cfg.MaxConnections,
		)
		go func(l *listener) {
			if err := s.acceptLoop(ctx, l); err != nil {
				errChan <- err
			}
		}(l)
	}

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Start binds the listeners and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// acceptLoop accepts connections until the listener is closed. Temporary
// accept errors are retried with exponential backoff.
func (s *Server) acceptLoop(ctx context.Context, l *listener) error {
	var tempDelay time.Duration

	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if tempDelay > time.Second {
				tempDelay = time.Second
			}
			slog.Warn("accept failed, retrying",
				"address", l.addr,
				"error", err,
				"retry_in", tempDelay.String(),
			)
			select {
			case <-time.After(tempDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		tempDelay = 0

		s.opts.Metrics.ConnectionOpened(l.addr)
		tracked := &trackedConn{Conn: conn}
		tracked.onClose = func() {
			s.mu.Lock()
			delete(s.active, tracked)
			s.mu.Unlock()
			s.opts.Metrics.ConnectionClosed()
		}
		s.mu.Lock()
		s.active[tracked] = struct{}{}
		s.mu.Unlock()

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, tracked, l.tls)
		}()
	}
}

// Shutdown stops accepting, lets in-flight requests finish within
// shutdown_timeout and then closes what is left.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		listeners := s.listeners
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())
		if s.opts.Health != nil {
			s.opts.Health.SetDraining(true)
		}

		timeout := s.cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		for _, l := range listeners {
			l.Close()
		}

		if err := s.h1.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			s.shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			s.h1.Close()
		}

		done := make(chan struct{})
		go func() {
			s.conns.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			n := s.closeActive()
			slog.Warn("shutdown timeout reached, closed remaining connections", "connections", n)
			if s.shutdownErr == nil {
				s.shutdownErr = fmt.Errorf("server shutdown error: %w", shutdownCtx.Err())
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("edge server stopped")
	})

	return s.shutdownErr
}

func (s *Server) closeActive() int {
	s.mu.Lock()
	conns := make([]*trackedConn, 0, len(s.active))
	for c := range s.active {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return len(conns)
}

// IsRunning returns true between Serve and the end of Shutdown.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
