package static

import (
	"errors"
	"fmt"
)

// Errors returned by Serve. The pipeline maps them to status codes.
var (
	// ErrMethodNotAllowed is returned for methods other than GET and HEAD.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrBadPath is returned when the request path cannot be decoded.
	ErrBadPath = errors.New("malformed request path")

	// ErrForbidden is returned for traversal attempts, paths that escape the
	// document root and directories without an index file.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when the file does not exist.
	ErrNotFound = errors.New("file not found")

	// ErrRead is returned when an existing file cannot be read.
	ErrRead = errors.New("file read failed")
)

// FileError records the file and cause of a filesystem failure.
type FileError struct {
	// Kind is one of the package sentinels.
	Kind error

	// Path is the filesystem path involved.
	Path string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

// Is implements error matching for errors.Is().
func (e *FileError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying error for error chain traversal.
func (e *FileError) Unwrap() error {
	return e.Err
}
