package proxy

import (
	"net"
	"net/http"
	"net/textproto"
	"strings"
)

// hopHeaders are connection scoped and never forwarded in either direction.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Upgrade",
	"Keep-Alive",
	"Te",
	"Trailer",
	"Transfer-Encoding",
}

// removeHopHeaders deletes hop-by-hop headers and any header named in
// Connection.
func removeHopHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// copyHeader adds every value of src to dst.
func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// ClientIP returns the host part of a remote address, or the address
// itself when it has no port.
func ClientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// setForwarded sets X-Forwarded-For, X-Forwarded-Proto and X-Forwarded-Host
// on out when the client did not send them.
func setForwarded(out http.Header, r *http.Request) {
	if out.Get("X-Forwarded-For") == "" {
		if ip := ClientIP(r.RemoteAddr); ip != "" {
			out.Set("X-Forwarded-For", ip)
		}
	}
	if out.Get("X-Forwarded-Proto") == "" {
		proto := "http"
		if r.TLS != nil {
			proto = "https"
		}
		out.Set("X-Forwarded-Proto", proto)
	}
	if out.Get("X-Forwarded-Host") == "" && r.Host != "" {
		out.Set("X-Forwarded-Host", r.Host)
	}
}

// joinPath appends the request path to a base path with a single slash.
func joinPath(base, path string) string {
	if base == "" || base == "/" {
		if path == "" {
			return "/"
		}
		return path
	}
	switch {
	case strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/"):
		return base + path[1:]
	case !strings.HasSuffix(base, "/") && !strings.HasPrefix(path, "/"):
		return base + "/" + path
	default:
		return base + path
	}
}
