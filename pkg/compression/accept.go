package compression

import (
	"strconv"
	"strings"
)

// AcceptEncoding is a parsed Accept-Encoding header: coding name to q-value.
type AcceptEncoding map[string]float64

// ParseAcceptEncoding parses a header value such as "br;q=1.0, gzip;q=0.5, *;q=0".
// Malformed q-values are treated as 1.
func ParseAcceptEncoding(header string) AcceptEncoding {
	ae := make(AcceptEncoding)
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name, params, _ := strings.Cut(part, ";")
		name = strings.ToLower(strings.TrimSpace(name))
		q := 1.0
		for _, param := range strings.Split(params, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(strings.ToLower(key)) != "q" {
				continue
			}
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				q = parsed
			}
		}
		ae[name] = q
	}
	return ae
}

// Allows reports whether coding is acceptable. An explicit entry wins over
// "*"; a q-value of zero is a refusal.
func (ae AcceptEncoding) Allows(coding string) bool {
	if q, ok := ae[coding]; ok {
		return q > 0
	}
	if q, ok := ae["*"]; ok {
		return q > 0
	}
	return false
}
