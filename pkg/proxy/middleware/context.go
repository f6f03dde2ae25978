package middleware

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// StartTimeKey stores the request start time for latency calculation.
// The request ID lives in the logging context so every log line carries it.
const StartTimeKey contextKey = "start_time"
