package pipeline

import (
	"bytes"
	"net/http"
)

// recorder buffers a complete response so the pipeline can add headers and
// compress the body before anything reaches the client.
//
// A body that grows past limit is committed instead: prepare runs on the
// recorded header, the status, header and buffered prefix go to w, and every
// later write is passed straight through uncompressed.
type recorder struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer

	w         http.ResponseWriter
	limit     int64
	prepare   func(http.Header)
	committed bool
	sent      int64
}

// newRecorder returns a recorder that commits to w once more than limit body
// bytes are written. A zero limit or a nil w buffers everything.
func newRecorder(w http.ResponseWriter, limit int64, prepare func(http.Header)) *recorder {
	return &recorder{
		header:  make(http.Header),
		w:       w,
		limit:   limit,
		prepare: prepare,
	}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	if !r.committed && r.w != nil && r.limit > 0 && int64(r.body.Len()+len(b)) > r.limit {
		if err := r.commit(); err != nil {
			return 0, err
		}
	}
	if r.committed {
		n, err := r.w.Write(b)
		r.sent += int64(n)
		return n, err
	}
	return r.body.Write(b)
}

// commit sends the status, the header and whatever is buffered to w.
func (r *recorder) commit() error {
	r.committed = true
	if r.prepare != nil {
		r.prepare(r.header)
	}

	dst := r.w.Header()
	for k, v := range r.header {
		dst[k] = v
	}
	r.w.WriteHeader(r.status)

	if r.body.Len() == 0 {
		return nil
	}
	n, err := r.w.Write(r.body.Bytes())
	r.sent += int64(n)
	r.body.Reset()
	return err
}

// reset discards a partial response, keeping nothing. A committed response
// cannot be taken back and is left alone.
func (r *recorder) reset() {
	if r.committed {
		return
	}
	r.header = make(http.Header)
	r.status = 0
	r.wroteHeader = false
	r.body.Reset()
}

// bodyAllowed reports whether a response with status may carry a body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}
