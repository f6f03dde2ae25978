// Package scheduler runs periodic maintenance jobs with robfig/cron.
//
// Schedules accept standard five field cron expressions and descriptors:
//
//	"@every 1m"   - every minute
//	"0 3 * * *"   - daily at 3 AM
//	"@hourly"     - at minute zero of every hour
//
// The server registers EvictJob on security.rate_limit_sweep, and RotateJob
// and PruneJob on logging.access_log.rotate.schedule. Re-adding a job under
// the same name replaces it.
package scheduler
