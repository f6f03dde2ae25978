package accesslog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)
)

// SQLite driver names.
const (
	DriverModernC = "sqlite"
	DriverCGo     = "sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS access_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    time_ns INTEGER NOT NULL,
    remote_addr TEXT NOT NULL,
    method TEXT NOT NULL,
    uri TEXT NOT NULL,
    protocol TEXT NOT NULL,
    status INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    duration_us INTEGER NOT NULL,
    user_agent TEXT,
    referer TEXT,
    vhost TEXT,
    upstream TEXT
);

CREATE INDEX IF NOT EXISTS idx_access_log_time ON access_log(time_ns);
CREATE INDEX IF NOT EXISTS idx_access_log_status ON access_log(status);
`

const insertEntry = `
INSERT INTO access_log (
    request_id, time_ns, remote_addr, method, uri, protocol, status, bytes,
    duration_us, user_agent, referer, vhost, upstream
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// SQLiteSink stores access records in a SQLite database.
type SQLiteSink struct {
	db     *sql.DB
	insert *sql.Stmt
	logger *slog.Logger
}

// NewSQLiteSink opens the database at path with the named driver
// ("sqlite" or "sqlite3") and creates the schema.
func NewSQLiteSink(driver, path string) (*SQLiteSink, error) {
	switch driver {
	case DriverModernC, DriverCGo:
	case "":
		driver = DriverModernC
	default:
		return nil, fmt.Errorf("unsupported sqlite driver %q (valid: sqlite, sqlite3)", driver)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	insert, err := db.Prepare(insertEntry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	logger := slog.Default().With("component", "accesslog.sqlite")
	logger.Info("SQLite access log initialized", "driver", driver, "path", path)

	return &SQLiteSink{db: db, insert: insert, logger: logger}, nil
}

// Write implements Sink.
func (s *SQLiteSink) Write(ctx context.Context, e *Entry) error {
	_, err := s.insert.ExecContext(ctx,
		e.RequestID, e.Time.UnixNano(), e.RemoteAddr, e.Method, e.URI, e.proto(),
		e.Status, e.Bytes, e.Duration.Microseconds(),
		nullable(e.UserAgent), nullable(e.Referer), nullable(e.VirtualHost), nullable(e.Upstream),
	)
	if err != nil {
		return fmt.Errorf("failed to store access record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, time_ns, remote_addr, method, uri, protocol, status, bytes,
		       duration_us, user_agent, referer, vhost, upstream
		FROM access_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query access log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e                                   Entry
			timeNs, durationUs                  int64
			userAgent, referer, vhost, upstream sql.NullString
		)
		if err := rows.Scan(&e.RequestID, &timeNs, &e.RemoteAddr, &e.Method, &e.URI, &e.Proto,
			&e.Status, &e.Bytes, &durationUs, &userAgent, &referer, &vhost, &upstream); err != nil {
			return nil, fmt.Errorf("failed to scan access record: %w", err)
		}
		e.Time = time.Unix(0, timeNs)
		e.Duration = time.Duration(durationUs) * time.Microsecond
		e.UserAgent = userAgent.String
		e.Referer = referer.String
		e.VirtualHost = vhost.String
		e.Upstream = upstream.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Prune deletes records older than the cutoff and returns how many were
// removed.
func (s *SQLiteSink) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM access_log WHERE time_ns < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to prune access log: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	s.insert.Close()
	return s.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
