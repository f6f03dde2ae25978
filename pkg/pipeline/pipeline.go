package pipeline

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"mercator-hq/edge/pkg/config"
	"mercator-hq/edge/pkg/limits/ratelimit"
	"mercator-hq/edge/pkg/proxy"
	"mercator-hq/edge/pkg/proxy/middleware"
	"mercator-hq/edge/pkg/routing"
	"mercator-hq/edge/pkg/security"
	"mercator-hq/edge/pkg/static"
	"mercator-hq/edge/pkg/telemetry/accesslog"
	"mercator-hq/edge/pkg/telemetry/logging"
	"mercator-hq/edge/pkg/telemetry/metrics"
	"mercator-hq/edge/pkg/telemetry/tracing"
	"mercator-hq/edge/pkg/upstream"
)

// AccessLogger receives one entry per finished request. Log must not block.
type AccessLogger interface {
	Log(e *accesslog.Entry) bool
}

// Options are the collaborators of a Pipeline. Every field is optional.
type Options struct {
	Metrics   *metrics.Collector
	AccessLog AccessLogger

	// Transport overrides the upstream transport, mainly for tests.
	Transport http.RoundTripper
}

// Pipeline is the http.Handler shared by the HTTP/1.1 and HTTP/2 loops.
type Pipeline struct {
	state atomic.Pointer[state]

	proxy   *proxy.Proxy
	metrics *metrics.Collector
	access  AccessLogger
}

// New builds a pipeline for the current snapshot of store and rebuilds it
// on every swap. A snapshot that cannot be built is logged and the previous
// state keeps serving.
func New(store *config.Store, opts Options) (*Pipeline, error) {
	p := &Pipeline{
		metrics: opts.Metrics,
		access:  opts.AccessLog,
	}

	registry := p.Registry
	if opts.Transport != nil {
		p.proxy = proxy.NewWithTransport(registry, opts.Metrics, opts.Transport)
	} else {
		p.proxy = proxy.New(registry, opts.Metrics)
	}

	if err := p.Apply(store.Load()); err != nil {
		return nil, err
	}

	store.Subscribe(func(_, cfg *config.Config) {
		if err := p.Apply(cfg); err != nil {
			slog.Error("configuration swap rejected by pipeline, keeping previous state", "error", err)
			return
		}
		slog.Info("pipeline state rebuilt",
			"virtual_hosts", len(cfg.VirtualHosts),
			"upstreams", len(cfg.Upstreams),
		)
	})

	return p, nil
}

// Apply builds the state for cfg and publishes it. Requests already in
// flight finish on the state they started with. A compressor the new state
// replaced is closed after a grace period.
func (p *Pipeline) Apply(cfg *config.Config) error {
	if cfg == nil {
		return config.ErrNilConfig
	}
	prev := p.state.Load()
	st, err := buildState(cfg, prev, p.proxy)
	if err != nil {
		return err
	}
	p.state.Store(st)
	retire(prev, st)
	return nil
}

// Registry returns the upstream pools of the current state.
func (p *Pipeline) Registry() *upstream.Registry {
	if st := p.state.Load(); st != nil {
		return st.registry
	}
	return nil
}

// Limiter returns the client rate limiter of the current state, or nil
// when rate limiting is off.
func (p *Pipeline) Limiter() *ratelimit.ClientLimiter {
	if st := p.state.Load(); st != nil {
		return st.gate.Limiter()
	}
	return nil
}

// Config returns the snapshot the current state was built from.
func (p *Pipeline) Config() *config.Config {
	if st := p.state.Load(); st != nil {
		return st.cfg
	}
	return nil
}

// ServeHTTP runs one request through the gate, the router and the selected
// handler, then finishes the buffered response.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := middleware.GetStartTime(r.Context())
	if start.IsZero() {
		start = time.Now()
	}

	st := p.state.Load()
	rec := newRecorder(w, st.cfg.Server.MaxBufferedBody, st.gate.ApplyHeaders)
	decision := p.handle(st, rec, r)

	status, written := p.finish(st, w, r, rec)

	p.metrics.RecordRequest(r.Method, status, time.Since(start), max(r.ContentLength, 0), written)
	if p.access == nil {
		return
	}
	p.access.Log(&accesslog.Entry{
		RequestID:   logging.GetRequestID(r.Context()),
		RemoteAddr:  proxy.ClientIP(r.RemoteAddr),
		Method:      r.Method,
		URI:         r.RequestURI,
		Proto:       r.Proto,
		Status:      status,
		Bytes:       written,
		Duration:    time.Since(start),
		UserAgent:   r.UserAgent(),
		Referer:     r.Referer(),
		VirtualHost: decision.VirtualHost,
		Upstream:    decision.ProxyPass,
		Time:        start,
	})
}

// handle produces the response into rec and returns the routing decision
// for the access log.
func (p *Pipeline) handle(st *state, rec *recorder, r *http.Request) routing.Decision {
	gate := st.gate

	if !gate.MethodAllowed(r.Method) {
		rec.Header().Set("Allow", gate.AllowHeader())
		middleware.WriteErrorPage(rec, http.StatusMethodNotAllowed)
		return routing.Decision{}
	}

	if res := gate.CheckRateLimit(proxy.ClientIP(r.RemoteAddr)); !res.Allowed {
		p.metrics.RecordRateLimited()
		rec.Header().Set("Retry-After", strconv.Itoa(security.RetryAfterSeconds(res.RetryAfter)))
		middleware.WriteErrorPage(rec, http.StatusTooManyRequests)
		return routing.Decision{}
	}

	if !gate.CheckRequestSize(r.ContentLength) {
		middleware.WriteErrorPage(rec, http.StatusRequestEntityTooLarge)
		return routing.Decision{}
	}
	if limit := st.cfg.Server.ClientMaxBodySize; limit > 0 && r.Body != nil && r.Body != http.NoBody {
		if r.ContentLength > limit {
			middleware.WriteErrorPage(rec, http.StatusRequestEntityTooLarge)
			return routing.Decision{}
		}
		r.Body = http.MaxBytesReader(rec, r.Body, limit)
	}

	decision, err := st.router.Resolve(r.Host, r.URL.Path)
	if err != nil {
		p.fail(rec, r, err)
		return decision
	}
	tracing.SetRouteAttributes(tracing.SpanFromContext(r.Context()), decision.VirtualHost, decision.Location)

	switch {
	case decision.Return != nil:
		writeReturn(rec, decision.Return)
	case decision.ProxyPass != "":
		err = st.proxy.Forward(rec, r, decision.ProxyPass)
	case decision.DocumentRoot != "":
		err = st.static.Serve(rec, r, decision.DocumentRoot, decision.IndexFiles)
		if errors.Is(err, static.ErrMethodNotAllowed) {
			rec.reset()
			rec.Header().Set("Allow", "GET, HEAD")
			middleware.WriteErrorPage(rec, http.StatusMethodNotAllowed)
			return decision
		}
	default:
		err = static.ErrNotFound
	}

	if err != nil && rec.committed {
		// The status is already on the wire; the error can only be logged.
		slog.WarnContext(r.Context(), "streamed response failed",
			"host", r.Host,
			"path", r.URL.Path,
			"status", rec.status,
			"sent", rec.sent,
			"error", err,
		)
		return decision
	}
	if err != nil {
		p.fail(rec, r, err)
	}
	return decision
}

func (p *Pipeline) fail(rec *recorder, r *http.Request, err error) {
	status := StatusFor(err)
	rec.reset()

	level := slog.LevelDebug
	switch {
	case status >= 500:
		level = slog.LevelWarn
		tracing.SetError(tracing.SpanFromContext(r.Context()), err)
	case status == StatusClientClosedRequest:
		level = slog.LevelInfo
	}
	slog.Log(r.Context(), level, "request failed",
		"host", r.Host,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	)

	if status == StatusClientClosedRequest {
		// Nobody is listening; the status is only recorded.
		rec.WriteHeader(status)
		return
	}
	middleware.WriteErrorPage(rec, status)
}

// writeReturn answers a location return directive. Redirect codes carry
// Location with an HTML body; other codes return the URL as text.
func writeReturn(rec *recorder, ret *routing.Redirect) {
	switch {
	case ret.Code >= 300 && ret.Code < 400 && ret.URL != "":
		rec.Header().Set("Location", ret.URL)
		middleware.WriteErrorPage(rec, ret.Code)
	case ret.URL != "":
		rec.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rec.Header().Set("Content-Length", strconv.Itoa(len(ret.URL)))
		rec.WriteHeader(ret.Code)
		_, _ = rec.Write([]byte(ret.URL))
	default:
		middleware.WriteErrorPage(rec, ret.Code)
	}
}

// finish adds security headers, compresses and writes rec to w. It returns
// the status and the number of body bytes sent. A committed recorder has
// already written everything.
func (p *Pipeline) finish(st *state, w http.ResponseWriter, r *http.Request, rec *recorder) (int, int64) {
	if rec.committed {
		p.metrics.RecordStreamed()
		return rec.status, rec.sent
	}

	status := rec.status
	if status == 0 {
		status = http.StatusOK
	}
	if status == StatusClientClosedRequest {
		return status, 0
	}

	st.gate.ApplyHeaders(rec.header)

	body := rec.body.Bytes()
	if r.Method != http.MethodHead && bodyAllowed(status) {
		if out, ok := st.compressor.Apply(status, rec.header, body, r.Header.Get("Accept-Encoding")); ok {
			p.metrics.RecordCompressed(rec.header.Get("Content-Encoding"))
			body = out
		}
	}

	dst := w.Header()
	for k, v := range rec.header {
		dst[k] = v
	}
	if !bodyAllowed(status) {
		dst.Del("Content-Length")
	} else if r.Method != http.MethodHead {
		dst.Set("Content-Length", strconv.Itoa(len(body)))
	}

	w.WriteHeader(status)
	if r.Method == http.MethodHead || !bodyAllowed(status) {
		return status, 0
	}
	n, err := w.Write(body)
	if err != nil {
		slog.DebugContext(r.Context(), "failed to write response", "error", err)
	}
	return status, int64(n)
}

// Handler wraps p with the edge middleware chain:
//
//	Recovery(RequestID(Tracing(Logging(Timeout(p)))))
//
// tracer may be nil.
func Handler(p *Pipeline, tracer *tracing.Tracer, requestTimeout time.Duration) http.Handler {
	var h http.Handler = p
	h = middleware.TimeoutMiddleware(requestTimeout)(h)
	h = middleware.LoggingMiddleware(h)
	if tracer != nil {
		h = tracer.Middleware(h)
	}
	h = middleware.RequestIDMiddleware(h)
	h = middleware.RecoveryMiddleware(h)
	return h
}
