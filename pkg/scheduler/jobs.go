package scheduler

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/edge/pkg/limits/ratelimit"
	"mercator-hq/edge/pkg/telemetry/accesslog"
)

// Job names used by the server.
const (
	JobRateLimitEvict  = "ratelimit-evict"
	JobAccessLogRotate = "accesslog-rotate"
	JobAccessLogPrune  = "accesslog-prune"
)

// EvictJob removes idle rate limiter buckets. limiter is called on every
// run so the job follows limiter replacement on reload; a nil limiter
// (rate limiting disabled) makes the run a no-op.
func EvictJob(limiter func() *ratelimit.ClientLimiter) Job {
	return func(ctx context.Context) error {
		l := limiter()
		if l == nil {
			return nil
		}
		if n := l.Evict(time.Now()); n > 0 {
			slog.DebugContext(ctx, "evicted idle rate limit buckets", "evicted", n, "remaining", l.Len())
		}
		return nil
	}
}

// RotateJob rotates the access log file once it passes its size limit.
func RotateJob(r *accesslog.Rotator) Job {
	return func(ctx context.Context) error {
		return r.Check()
	}
}

// PruneJob deletes SQLite access records older than retention.
func PruneJob(sink *accesslog.SQLiteSink, retention time.Duration) Job {
	return func(ctx context.Context) error {
		deleted, err := sink.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			return err
		}
		if deleted > 0 {
			slog.InfoContext(ctx, "pruned access log records", "deleted_count", deleted)
		}
		return nil
	}
}
