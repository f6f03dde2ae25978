package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/net/http2"
)

// Negotiated application protocols.
const (
	ProtoHTTP2 = "h2"
	ProtoHTTP1 = "http/1.1"
)

// handleConn runs the TLS handshake for TLS listeners and dispatches the
// connection on the negotiated protocol. Errors end only this connection.
func (s *Server) handleConn(ctx context.Context, conn net.Conn, isTLS bool) {
	if !isTLS {
		s.opts.Metrics.RecordProtocol(ProtoHTTP1)
		s.serveHTTP1(conn)
		return
	}

	tlsConn := tls.Server(conn, s.opts.TLSConfig)
	if d := s.cfg.ReadHeaderTimeout; d > 0 {
		_ = conn.SetDeadline(time.Now().Add(d))
	}
	hsCtx, cancel := context.WithCancel(ctx)
	err := tlsConn.HandshakeContext(hsCtx)
	cancel()
	if err != nil {
		slog.Debug("tls handshake failed",
			"remote_addr", conn.RemoteAddr().String(),
			"error", err,
		)
		tlsConn.Close()
		return
	}
	_ = conn.SetDeadline(time.Time{})

	proto := tlsConn.ConnectionState().NegotiatedProtocol
	switch proto {
	case ProtoHTTP2:
		s.opts.Metrics.RecordProtocol(ProtoHTTP2)
		// Streams outlive ctx so graceful shutdown can drain them.
		s.h2.ServeConn(tlsConn, &http2.ServeConnOpts{
			Context:    context.WithoutCancel(ctx),
			BaseConfig: s.h1,
			Handler:    s.handler,
		})
	case ProtoHTTP1, "":
		s.opts.Metrics.RecordProtocol(ProtoHTTP1)
		s.serveHTTP1(tlsConn)
	default:
		slog.Warn("unsupported application protocol negotiated, closing connection",
			"protocol", proto,
			"remote_addr", conn.RemoteAddr().String(),
		)
		tlsConn.Close()
	}
}

// serveHTTP1 hands conn to the shared HTTP/1.1 server, which keeps it
// alive across requests until the client or an idle timeout closes it.
func (s *Server) serveHTTP1(conn net.Conn) {
	if !s.h1Conn.push(conn) {
		conn.Close()
	}
}

// connQueue is the net.Listener the HTTP/1.1 server accepts from. The
// protocol dispatcher pushes connections into it.
type connQueue struct {
	ch        chan net.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func newConnQueue() *connQueue {
	return &connQueue{
		ch:   make(chan net.Conn),
		done: make(chan struct{}),
	}
}

// push delivers conn to Accept. It reports false once the queue is closed.
func (q *connQueue) push(conn net.Conn) bool {
	select {
	case q.ch <- conn:
		return true
	case <-q.done:
		return false
	}
}

func (q *connQueue) Accept() (net.Conn, error) {
	select {
	case conn := <-q.ch:
		return conn, nil
	case <-q.done:
		return nil, net.ErrClosed
	}
}

func (q *connQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

func (q *connQueue) Addr() net.Addr {
	return queueAddr{}
}

type queueAddr struct{}

func (queueAddr) Network() string { return "edge" }
func (queueAddr) String() string  { return "http/1.1" }

// noDelayListener applies tcp_nodelay before the connection limiter wraps
// the connection.
type noDelayListener struct {
	net.Listener
	noDelay bool
}

func (l *noDelayListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(l.noDelay)
	}
	return conn, nil
}

// trackedConn reports its first Close to the connection gauge.
type trackedConn struct {
	net.Conn
	onClose func()
	once    sync.Once
}

func (c *trackedConn) Close() error {
	c.once.Do(c.onClose)
	return c.Conn.Close()
}
