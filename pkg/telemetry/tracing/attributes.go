package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys follow OpenTelemetry HTTP semantic conventions where one
// exists. Edge specific keys use the "edge.*" namespace.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrHTTPRoute      = "http.route"
	AttrURLPath        = "url.path"
	AttrServerAddress  = "server.address"
	AttrClientAddress  = "client.address"
	AttrUserAgent      = "user_agent.original"
	AttrNetworkProto   = "network.protocol.version"

	AttrRequestID   = "edge.request_id"
	AttrVirtualHost = "edge.vhost"
	AttrLocation    = "edge.location"
	AttrUpstream    = "edge.upstream"
	AttrUpstreamURL = "edge.upstream.url"
	AttrRateLimited = "edge.rate_limited"
	AttrEncoding    = "edge.content_encoding"

	AttrErrorMessage = "error.message"
)

// SetRouteAttributes records the routing decision on a span.
func SetRouteAttributes(span trace.Span, vhost, location string) {
	attrs := []attribute.KeyValue{attribute.String(AttrVirtualHost, vhost)}
	if location != "" {
		attrs = append(attrs,
			attribute.String(AttrLocation, location),
			attribute.String(AttrHTTPRoute, location),
		)
	}
	span.SetAttributes(attrs...)
}

// SetUpstreamAttributes records the pool and the server chosen for a
// proxied request.
func SetUpstreamAttributes(span trace.Span, upstream, serverURL string) {
	span.SetAttributes(
		attribute.String(AttrUpstream, upstream),
		attribute.String(AttrUpstreamURL, serverURL),
	)
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
