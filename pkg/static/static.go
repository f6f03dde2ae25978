package static

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Server serves files below a document root. It holds no per-root state,
// so one Server is shared by every virtual host.
type Server struct {
	// MaxFileSize is the largest file read into memory. Larger files are
	// copied to the writer as they are read. Zero means no limit.
	MaxFileSize int64
}

// New creates a static file server.
func New() *Server {
	return &Server{}
}

// Serve answers r from root. Directories are served through the first
// existing regular file among index; listings are never produced.
//
// On success the response is written to w and nil is returned. Otherwise
// nothing is written and the error wraps one of ErrMethodNotAllowed,
// ErrBadPath, ErrForbidden, ErrNotFound or ErrRead.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, root string, index []string) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return ErrMethodNotAllowed
	}

	rel, err := SanitizePath(r.URL.EscapedPath())
	if err != nil {
		slog.WarnContext(r.Context(), "rejected static path",
			"path", r.URL.EscapedPath(),
			"error", err,
		)
		return err
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return &FileError{Kind: ErrNotFound, Path: root, Err: err}
	}
	full := filepath.Join(rootAbs, filepath.FromSlash(rel))

	info, err := os.Stat(full)
	if err != nil {
		return statError(full, err)
	}

	if info.IsDir() {
		file, fileInfo, ok := findIndex(full, index)
		if !ok {
			return &FileError{Kind: ErrForbidden, Path: full}
		}
		full, info = file, fileInfo
	}

	if err := checkContained(rootAbs, full); err != nil {
		slog.WarnContext(r.Context(), "static path escapes document root",
			"path", r.URL.Path,
			"resolved", full,
		)
		return err
	}

	return s.serveFile(w, r, full, info)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, path string, info fs.FileInfo) error {
	modTime := info.ModTime()
	etag := ETag(info.Size(), modTime)
	lastModified := modTime.UTC().Format(http.TimeFormat)

	h := w.Header()
	h.Set("ETag", etag)
	h.Set("Last-Modified", lastModified)

	if notModified(r, etag, modTime) {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	size := info.Size()
	var body []byte
	var stream *os.File
	if r.Method != http.MethodHead {
		if s.MaxFileSize > 0 && size > s.MaxFileSize {
			f, err := os.Open(path)
			if err != nil {
				h.Del("ETag")
				h.Del("Last-Modified")
				return &FileError{Kind: ErrRead, Path: path, Err: err}
			}
			defer f.Close()
			stream = f
		} else {
			data, err := readFile(path)
			if err != nil {
				h.Del("ETag")
				h.Del("Last-Modified")
				return &FileError{Kind: ErrRead, Path: path, Err: err}
			}
			body = data
			size = int64(len(data))
		}
	}

	h.Set("Content-Type", ContentType(path))
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	h.Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusOK)

	switch {
	case stream != nil:
		// The status is committed; a short copy can only be logged.
		if n, err := io.Copy(w, stream); err != nil {
			slog.DebugContext(r.Context(), "static file stream interrupted",
				"path", path,
				"sent", n,
				"size", size,
				"error", err,
			)
		}
	case body != nil:
		_, _ = w.Write(body)
	}
	return nil
}

// SanitizePath decodes a request path and returns it relative to the
// document root with forward slashes. A ".." segment or a NUL byte is
// rejected with ErrForbidden before the filesystem is touched.
func SanitizePath(escaped string) (string, error) {
	decoded, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPath, err)
	}
	if strings.ContainsRune(decoded, 0) {
		return "", fmt.Errorf("%w: NUL byte in path", ErrForbidden)
	}

	for _, seg := range strings.FieldsFunc(decoded, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return "", fmt.Errorf("%w: parent directory segment", ErrForbidden)
		}
	}

	return strings.TrimLeft(decoded, "/"), nil
}

// ETag builds the weak entity tag for a file from its size and
// modification time in whole seconds.
func ETag(size int64, modTime time.Time) string {
	return `W/"` + strconv.FormatInt(size, 16) + "-" + strconv.FormatInt(modTime.Unix(), 16) + `"`
}

// notModified evaluates If-None-Match, and If-Modified-Since only when
// If-None-Match is absent.
func notModified(r *http.Request, etag string, modTime time.Time) bool {
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		return etagMatches(inm, etag)
	}

	ims := r.Header.Get("If-Modified-Since")
	if ims == "" {
		return false
	}
	since, err := http.ParseTime(ims)
	if err != nil {
		return false
	}
	return !modTime.Truncate(time.Second).After(since)
}

// etagMatches applies weak comparison against a comma separated list.
func etagMatches(header, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

func findIndex(dir string, index []string) (string, fs.FileInfo, bool) {
	for _, name := range index {
		if name == "" || strings.ContainsAny(name, `/\`) {
			continue
		}
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, info, true
		}
	}
	return "", nil, false
}

// checkContained resolves symlinks on both sides and requires path to be
// root itself or below it.
func checkContained(root, path string) error {
	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return &FileError{Kind: ErrNotFound, Path: root, Err: err}
	}
	canonicalPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return statError(path, err)
	}

	if canonicalPath == canonicalRoot || strings.HasPrefix(canonicalPath, canonicalRoot+string(filepath.Separator)) {
		return nil
	}
	return &FileError{Kind: ErrForbidden, Path: path, Err: errors.New("outside document root")}
}

func statError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &FileError{Kind: ErrNotFound, Path: path}
	case errors.Is(err, fs.ErrPermission):
		return &FileError{Kind: ErrForbidden, Path: path, Err: err}
	default:
		// ENOTDIR for "file.txt/x" is a missing file as far as clients care.
		if errors.Is(err, syscall.ENOTDIR) {
			return &FileError{Kind: ErrNotFound, Path: path}
		}
		return &FileError{Kind: ErrRead, Path: path, Err: err}
	}
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
