package accesslog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Sink persists access records.
type Sink interface {
	Write(ctx context.Context, e *Entry) error
	Close() error
}

// FileSink appends formatted lines to a file, or to a writer such as
// stdout.
type FileSink struct {
	mu     sync.Mutex
	path   string
	format Format
	w      io.Writer
	file   *os.File
}

// NewFileSink opens path for appending, creating parent directories. An
// empty path writes to stdout.
func NewFileSink(path string, format Format) (*FileSink, error) {
	if path == "" {
		return NewWriterSink(os.Stdout, format), nil
	}

	s := &FileSink{path: path, format: format}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewWriterSink writes formatted lines to w.
func NewWriterSink(w io.Writer, format Format) *FileSink {
	return &FileSink{w: w, format: format}
}

func (s *FileSink) open() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create access log directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open access log: %w", err)
	}
	s.file = f
	s.w = f
	return nil
}

// Write implements Sink.
func (s *FileSink) Write(ctx context.Context, e *Entry) error {
	line := e.Line(s.format) + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.w == nil {
		return errors.New("access log is closed")
	}
	_, err := io.WriteString(s.w, line)
	return err
}

// Path returns the file path, or "" for writer sinks.
func (s *FileSink) Path() string {
	return s.path
}

// Reopen runs fn while no write is in progress, then opens the path again.
// Rotation renames the file inside fn.
func (s *FileSink) Reopen(fn func() error) error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("failed to close access log: %w", err)
		}
		s.file, s.w = nil, nil
	}

	fnErr := fn()
	if err := s.open(); err != nil {
		return errors.Join(fnErr, err)
	}
	return fnErr
}

// Close implements Sink.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w = nil
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// MultiSink fans a record out to several sinks.
type MultiSink []Sink

// Write implements Sink. Every sink is attempted.
func (m MultiSink) Write(ctx context.Context, e *Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Sink.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
