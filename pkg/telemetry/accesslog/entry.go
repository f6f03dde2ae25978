package accesslog

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format selects the line layout of text sinks.
type Format string

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
	// FormatCommon writes the NCSA common log format.
	FormatCommon Format = "common"
	// FormatCombined writes the common format plus referer and user agent.
	FormatCombined Format = "combined"
)

// clfTime is the timestamp layout of the common and combined formats.
const clfTime = "02/Jan/2006:15:04:05 -0700"

// ParseFormat converts a configured format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCommon:
		return FormatCommon, nil
	case FormatCombined, "":
		return FormatCombined, nil
	default:
		return "", fmt.Errorf("unknown access log format %q (valid: json, common, combined)", s)
	}
}

// Entry is one access record.
type Entry struct {
	RequestID   string
	RemoteAddr  string
	Method      string
	URI         string
	Proto       string
	Status      int
	Bytes       int64
	Duration    time.Duration
	UserAgent   string
	Referer     string
	VirtualHost string
	Upstream    string
	Time        time.Time
}

type jsonEntry struct {
	Timestamp   string  `json:"timestamp"`
	RequestID   string  `json:"request_id"`
	RemoteAddr  string  `json:"remote_addr"`
	Method      string  `json:"method"`
	URI         string  `json:"uri"`
	Proto       string  `json:"protocol"`
	Status      int     `json:"status"`
	Bytes       int64   `json:"response_size"`
	DurationMs  float64 `json:"duration_ms"`
	UserAgent   *string `json:"user_agent"`
	Referer     *string `json:"referer"`
	VirtualHost string  `json:"vhost,omitempty"`
	Upstream    string  `json:"upstream,omitempty"`
}

// Line renders the entry in format f without a trailing newline.
func (e *Entry) Line(f Format) string {
	switch f {
	case FormatJSON:
		b, err := json.Marshal(jsonEntry{
			Timestamp:   e.Time.UTC().Format(time.RFC3339Nano),
			RequestID:   e.RequestID,
			RemoteAddr:  e.RemoteAddr,
			Method:      e.Method,
			URI:         e.URI,
			Proto:       e.proto(),
			Status:      e.Status,
			Bytes:       e.Bytes,
			DurationMs:  float64(e.Duration.Microseconds()) / 1000,
			UserAgent:   optional(e.UserAgent),
			Referer:     optional(e.Referer),
			VirtualHost: e.VirtualHost,
			Upstream:    e.Upstream,
		})
		if err != nil {
			return fmt.Sprintf(`{"error":%q}`, err.Error())
		}
		return string(b)
	case FormatCommon:
		return e.common()
	default:
		return fmt.Sprintf("%s %q %q", e.common(), dash(e.Referer), dash(e.UserAgent))
	}
}

func (e *Entry) common() string {
	return fmt.Sprintf("%s - - [%s] \"%s %s %s\" %d %d",
		dash(e.RemoteAddr),
		e.Time.Format(clfTime),
		e.Method,
		e.URI,
		e.proto(),
		e.Status,
		e.Bytes,
	)
}

func (e *Entry) proto() string {
	if e.Proto == "" {
		return "HTTP/1.1"
	}
	return e.Proto
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
