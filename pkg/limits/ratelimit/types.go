package ratelimit

import "time"

// Config configures per-client request rate limiting.
type Config struct {
	// RequestsPerSecond is the bucket refill rate.
	RequestsPerSecond float64

	// Burst is the bucket capacity.
	Burst int64

	// IdleTTL removes a client's bucket after this long without requests.
	// Zero keeps buckets until MaxClients forces eviction.
	IdleTTL time.Duration

	// MaxClients caps the number of tracked clients. When a new client
	// exceeds it, the least recently seen tenth of the table is evicted.
	// Zero means no cap.
	MaxClients int
}

// CheckResult contains the result of a rate limit check.
type CheckResult struct {
	// Allowed indicates if the request is permitted.
	Allowed bool

	// Limit is the bucket capacity.
	Limit int64

	// Remaining is how many requests may still be made immediately.
	Remaining int64

	// RetryAfter suggests how long to wait before retrying. Zero when allowed.
	RetryAfter time.Duration
}
