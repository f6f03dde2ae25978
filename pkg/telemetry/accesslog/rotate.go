package accesslog

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

// Rotator renames an access log once it grows past a size limit, keeping
// at most MaxFiles numbered generations (path.1 is the newest).
type Rotator struct {
	sink     *FileSink
	maxSize  int64
	maxFiles int
}

// NewRotator returns a rotator for a file sink. A maxSize of zero
// disables rotation.
func NewRotator(sink *FileSink, maxSize int64, maxFiles int) *Rotator {
	if maxFiles < 1 {
		maxFiles = 1
	}
	return &Rotator{sink: sink, maxSize: maxSize, maxFiles: maxFiles}
}

// ShouldRotate reports whether the file exceeds the size limit.
func (r *Rotator) ShouldRotate() bool {
	if r.maxSize <= 0 || r.sink.Path() == "" {
		return false
	}
	info, err := os.Stat(r.sink.Path())
	if err != nil {
		return false
	}
	return info.Size() > r.maxSize
}

// Check rotates the file when ShouldRotate reports true. It is the job
// run by the scheduler.
func (r *Rotator) Check() error {
	if !r.ShouldRotate() {
		return nil
	}
	if err := r.sink.Reopen(r.rotate); err != nil {
		return err
	}
	slog.Info("access log rotated", "path", r.sink.Path(), "max_files", r.maxFiles)
	return nil
}

func (r *Rotator) rotate() error {
	base := r.sink.Path()

	// The oldest generation is overwritten by the rename below it.
	for i := r.maxFiles - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", base, i)
		to := fmt.Sprintf("%s.%d", base, i+1)
		if err := os.Rename(from, to); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to rotate %s: %w", from, err)
		}
	}

	if err := os.Rename(base, base+".1"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to rotate %s: %w", base, err)
	}
	return nil
}
