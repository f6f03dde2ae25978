// Package accesslog records one entry per handled request.
//
// Entries are queued by the request pipeline and written by a background
// worker, so a slow disk never delays a response. When the queue is full
// records are dropped and counted.
//
// Text sinks support three layouts:
//
//	json:     {"timestamp":"...","request_id":"...","status":200,...}
//	common:   10.0.0.1 - - [02/Jan/2026:15:04:05 +0000] "GET / HTTP/1.1" 200 512
//	combined: common plus "referer" "user-agent"
//
// Records can additionally be stored in SQLite with either the pure Go
// driver ("sqlite") or the cgo driver ("sqlite3").
package accesslog
