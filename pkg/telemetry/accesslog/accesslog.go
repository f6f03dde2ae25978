package accesslog

import (
	"fmt"

	"mercator-hq/edge/pkg/config"
)

// Logger is the access log of a running server: the async queue in front
// of every configured sink plus the rotator for the text file, if any.
type Logger struct {
	*Async
	Rotator *Rotator
	SQLite  *SQLiteSink
}

// New builds the access log described by cfg. It returns nil when access
// logging is disabled.
func New(cfg config.AccessLogConfig) (*Logger, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	format, err := ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	file, err := NewFileSink(cfg.Path, format)
	if err != nil {
		return nil, err
	}

	l := &Logger{}
	sinks := MultiSink{file}

	if cfg.Path != "" && cfg.Rotate.MaxSize > 0 {
		l.Rotator = NewRotator(file, cfg.Rotate.MaxSize, cfg.Rotate.MaxFiles)
	}

	if cfg.SQLite.Enabled {
		db, err := NewSQLiteSink(cfg.SQLite.Driver, cfg.SQLite.Path)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to open sqlite access log: %w", err)
		}
		l.SQLite = db
		sinks = append(sinks, db)
	}

	l.Async = NewAsync(sinks, cfg.BufferSize)
	return l, nil
}

// Log enqueues e. It is a no-op on a nil Logger.
func (l *Logger) Log(e *Entry) bool {
	if l == nil {
		return false
	}
	return l.Async.Log(e)
}

// Close drains and closes every sink. It is a no-op on a nil Logger.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.Async.Close()
}
