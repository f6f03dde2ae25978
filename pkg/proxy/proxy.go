package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/edge/pkg/telemetry/metrics"
	"mercator-hq/edge/pkg/telemetry/tracing"
	"mercator-hq/edge/pkg/upstream"
)

// Upstream request outcomes used as the result metric label.
const (
	ResultSuccess   = "success"
	ResultTimeout   = "timeout"
	ResultError     = "error"
	ResultNoHealthy = "no_healthy"
	ResultSaturated = "saturated"
	ResultCanceled  = "canceled"
)

type dialTimeoutKey struct{}

// Proxy forwards requests to load balanced upstream pools.
//
// An upstream body up to MaxResponseBytes is read completely before anything
// is written to the client, so a failure at any point can still be answered
// with a clean 502. Larger bodies are streamed once the status is known.
type Proxy struct {
	registry  func() *upstream.Registry
	transport http.RoundTripper
	metrics   *metrics.Collector

	// MaxResponseBytes is the largest upstream body buffered before it is
	// written. Zero means every body is buffered.
	MaxResponseBytes int64
}

// New creates a proxy resolving pools through registry on every call, so a
// configuration swap takes effect for the next request.
func New(registry func() *upstream.Registry, collector *metrics.Collector) *Proxy {
	return NewWithTransport(registry, collector, newTransport())
}

// NewWithTransport is New with a caller supplied round tripper.
func NewWithTransport(registry func() *upstream.Registry, collector *metrics.Collector, rt http.RoundTripper) *Proxy {
	return &Proxy{
		registry:  registry,
		transport: rt,
		metrics:   collector,
	}
}

// WithMaxResponseBytes returns a copy of p with a different buffering limit.
// The copy shares the transport and its connection pool.
func (p *Proxy) WithMaxResponseBytes(n int64) *Proxy {
	c := *p
	c.MaxResponseBytes = n
	return &c
}

func newTransport() *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{KeepAlive: 30 * time.Second}
			if timeout, ok := ctx.Value(dialTimeoutKey{}).(time.Duration); ok && timeout > 0 {
				d.Timeout = timeout
			}
			return d.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// Forward sends r to a server of the named pool and copies the answer to w.
//
// A nil return means the response was written. ErrResponseTruncated means a
// streamed body broke off after the status was sent. Otherwise nothing was
// written and the error wraps ErrUnknownUpstream, ErrNoHealthyServers,
// ErrUpstreamSaturated, ErrUpstreamTimeout, ErrUpstreamTransport,
// ErrRequestBody or ErrClientCanceled. Timeouts and transport failures mark
// the server unhealthy until the health checker sees it recover.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, upstreamName string) error {
	pool, err := p.registry().Get(upstreamName)
	if err != nil {
		p.metrics.RecordUpstream(upstreamName, ResultError, 0)
		return err
	}

	srv, err := pool.Select()
	if err != nil {
		result := ResultNoHealthy
		if errors.Is(err, upstream.ErrSaturated) {
			result = ResultSaturated
		}
		p.metrics.RecordUpstream(upstreamName, result, 0)
		return err
	}

	// Select filters by capacity but another request may win the race.
	if !srv.Acquire() {
		p.metrics.RecordUpstream(upstreamName, ResultSaturated, 0)
		return &upstream.NoHealthyServersError{Pool: upstreamName, Total: len(pool.Servers()), Healthy: pool.HealthyCount()}
	}
	defer srv.Release()

	cfg := pool.Config()
	ctx := r.Context()
	if cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ReadTimeout)
		defer cancel()
	}
	ctx = context.WithValue(ctx, dialTimeoutKey{}, cfg.ConnectionTimeout)

	span := tracing.SpanFromContext(ctx)
	tracing.SetUpstreamAttributes(span, upstreamName, srv.Address())

	out := p.outgoing(ctx, r, srv)

	start := time.Now()
	resp, body, streaming, err := p.roundTrip(out)
	latency := time.Since(start)
	if err != nil {
		return p.fail(ctx, r, upstreamName, srv, err, latency)
	}
	defer resp.Body.Close()

	p.metrics.RecordUpstream(upstreamName, ResultSuccess, latency)
	slog.DebugContext(r.Context(), "upstream response",
		"upstream", upstreamName,
		"server", srv.Address(),
		"status", resp.StatusCode,
		"latency_ms", latency.Milliseconds(),
		"streaming", streaming,
	)

	header := responseHeader(resp, out.Method, streaming)
	removeHopHeaders(header)
	copyHeader(w.Header(), header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
	if !streaming {
		return nil
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return &UpstreamError{Upstream: upstreamName, Server: srv.Address(), Kind: ErrResponseTruncated, Err: err}
	}
	return nil
}

// outgoing builds the upstream request: same method, path, query and
// body, scheme and authority of srv, and a sanitized header set.
func (p *Proxy) outgoing(ctx context.Context, r *http.Request, srv *upstream.Server) *http.Request {
	out := r.Clone(ctx)
	out.RequestURI = ""
	out.Close = false

	base := srv.URL()
	out.URL.Scheme = base.Scheme
	out.URL.Host = base.Host
	out.URL.Path = joinPath(base.Path, r.URL.Path)
	out.URL.RawPath = ""
	if r.URL.RawPath != "" {
		out.URL.RawPath = joinPath(base.EscapedPath(), r.URL.RawPath)
	}

	if r.ContentLength == 0 {
		out.Body = nil
	}

	removeHopHeaders(out.Header)
	setForwarded(out.Header, r)
	tracing.Inject(ctx, out.Header)

	// An empty User-Agent stays empty instead of Go's default.
	if _, ok := out.Header["User-Agent"]; !ok {
		out.Header.Set("User-Agent", "")
	}
	return out
}

// roundTrip sends out and buffers the response body up to MaxResponseBytes.
// When the body is larger, streaming is true, body holds what was already
// read and the rest is still unread in resp.Body.
func (p *Proxy) roundTrip(out *http.Request) (resp *http.Response, body []byte, streaming bool, err error) {
	resp, err = p.transport.RoundTrip(out)
	if err != nil {
		return nil, nil, false, err
	}

	limit := p.MaxResponseBytes
	if limit > 0 && resp.ContentLength > limit {
		return resp, nil, true, nil
	}

	var reader io.Reader = resp.Body
	if limit > 0 {
		reader = io.LimitReader(resp.Body, limit+1)
	}
	body, err = io.ReadAll(reader)
	if err != nil {
		resp.Body.Close()
		return nil, nil, false, fmt.Errorf("reading upstream body: %w", err)
	}
	return resp, body, limit > 0 && int64(len(body)) > limit, nil
}

// responseHeader is the header set sent to the client. A buffered body is
// re-framed by the client connection, so its Content-Length is dropped. A
// HEAD answer keeps the entity length the upstream announced, and a streamed
// body keeps a known length.
func responseHeader(resp *http.Response, method string, streaming bool) http.Header {
	header := resp.Header.Clone()
	switch {
	case method == http.MethodHead:
	case streaming && resp.ContentLength >= 0:
		header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	default:
		header.Del("Content-Length")
	}
	return header
}

func (p *Proxy) fail(ctx context.Context, r *http.Request, upstreamName string, srv *upstream.Server, err error, latency time.Duration) error {
	upErr := &UpstreamError{Upstream: upstreamName, Server: srv.Address(), Err: err}

	var maxBytes *http.MaxBytesError
	requestErr := r.Context().Err()
	switch {
	case errors.Is(requestErr, context.Canceled):
		upErr.Kind = ErrClientCanceled
		upErr.Err = errors.Join(err, requestErr)
		p.metrics.RecordUpstream(upstreamName, ResultCanceled, latency)
		return upErr

	case errors.As(err, &maxBytes):
		upErr.Kind = ErrRequestBody
		p.metrics.RecordUpstream(upstreamName, ResultCanceled, latency)
		return upErr

	case requestErr != nil:
		// The request deadline ran out while the server was still answering.
		// It counts against the server like read_timeout does.
		upErr.Kind = ErrUpstreamTimeout
		upErr.Err = errors.Join(err, ErrRequestDeadline)
		p.metrics.RecordUpstream(upstreamName, ResultTimeout, latency)

	case isTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		upErr.Kind = ErrUpstreamTimeout
		p.metrics.RecordUpstream(upstreamName, ResultTimeout, latency)

	default:
		upErr.Kind = ErrUpstreamTransport
		p.metrics.RecordUpstream(upstreamName, ResultError, latency)
	}

	if srv.MarkUnhealthy() {
		p.metrics.UpdateUpstreamHealth(upstreamName, srv.Address(), false)
		slog.WarnContext(r.Context(), "upstream server marked unhealthy",
			"upstream", upstreamName,
			"server", srv.Address(),
			"error", err,
		)
	}
	tracing.SetError(tracing.SpanFromContext(r.Context()), upErr)
	return upErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
