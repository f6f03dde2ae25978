package compression

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"mercator-hq/edge/pkg/config"
)

// Encoding names in preference order.
const (
	EncodingBrotli = "br"
	EncodingGzip   = "gzip"
	EncodingZstd   = "zstd"
)

type encoder struct {
	name     string
	compress func([]byte) ([]byte, error)
}

// Compressor re-encodes buffered response bodies. It is built from one
// configuration snapshot and is safe for concurrent use.
type Compressor struct {
	cfg      config.CompressionConfig
	encoders []encoder

	gzipPool   sync.Pool
	brotliPool sync.Pool
	zenc       *zstd.Encoder
}

// New creates a compressor for the enabled encodings. The configured level
// (1 to 11) is clamped to each encoder's range.
func New(cfg config.CompressionConfig) (*Compressor, error) {
	c := &Compressor{cfg: cfg}
	level := cfg.Level

	if cfg.EnableBrotli {
		brLevel := clamp(level, brotli.BestSpeed, brotli.BestCompression)
		c.brotliPool.New = func() any {
			return brotli.NewWriterLevel(nil, brLevel)
		}
		c.encoders = append(c.encoders, encoder{name: EncodingBrotli, compress: c.brotliEncode})
	}

	if cfg.EnableGzip {
		gzLevel := clamp(level, gzip.BestSpeed, gzip.BestCompression)
		c.gzipPool.New = func() any {
			// The level is pre-clamped, so NewWriterLevel cannot fail.
			w, _ := gzip.NewWriterLevel(nil, gzLevel)
			return w
		}
		c.encoders = append(c.encoders, encoder{name: EncodingGzip, compress: c.gzipEncode})
	}

	if cfg.EnableZstd {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, err
		}
		c.zenc = enc
		c.encoders = append(c.encoders, encoder{name: EncodingZstd, compress: c.zstdEncode})
	}

	return c, nil
}

// Apply compresses body when the response qualifies and the client accepts
// an enabled encoding. Brotli is preferred over gzip, gzip over zstd.
//
// On success the returned body is the encoded one and h carries
// Content-Encoding, Content-Length and Vary. If every accepted encoder
// fails the original body is returned unchanged.
func (c *Compressor) Apply(status int, h http.Header, body []byte, acceptEncoding string) ([]byte, bool) {
	if !c.eligible(status, h, len(body)) {
		return body, false
	}
	addVary(h, "Accept-Encoding")

	accepted := ParseAcceptEncoding(acceptEncoding)
	for _, enc := range c.encoders {
		if !accepted.Allows(enc.name) {
			continue
		}
		out, err := enc.compress(body)
		if err != nil {
			slog.Debug("compression failed", "encoding", enc.name, "error", err)
			continue
		}
		h.Set("Content-Encoding", enc.name)
		h.Set("Content-Length", strconv.Itoa(len(out)))
		return out, true
	}

	return body, false
}

// Encodings returns the enabled encodings in preference order.
func (c *Compressor) Encodings() []string {
	names := make([]string, len(c.encoders))
	for i, enc := range c.encoders {
		names[i] = enc.name
	}
	return names
}

// Close releases the zstd encoder.
func (c *Compressor) Close() error {
	if c.zenc != nil {
		return c.zenc.Close()
	}
	return nil
}

func (c *Compressor) eligible(status int, h http.Header, size int) bool {
	if len(c.encoders) == 0 {
		return false
	}
	if status < 200 || status >= 300 || status == http.StatusNoContent {
		return false
	}
	if size < c.cfg.MinCompressSize || size == 0 {
		return false
	}
	if enc := h.Get("Content-Encoding"); enc != "" && !strings.EqualFold(enc, "identity") {
		return false
	}
	if strings.Contains(strings.ToLower(h.Get("Cache-Control")), "no-transform") {
		return false
	}
	return c.compressibleType(h.Get("Content-Type"))
}

func (c *Compressor) compressibleType(contentType string) bool {
	if contentType == "" {
		return false
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	for _, prefix := range c.cfg.CompressTypes {
		if strings.HasPrefix(contentType, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

func (c *Compressor) gzipEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := c.gzipPool.Get().(*gzip.Writer)
	defer c.gzipPool.Put(w)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Compressor) brotliEncode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := c.brotliPool.Get().(*brotli.Writer)
	defer c.brotliPool.Put(w)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Compressor) zstdEncode(data []byte) ([]byte, error) {
	return c.zenc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

func addVary(h http.Header, value string) {
	for _, v := range h.Values("Vary") {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "*" || strings.EqualFold(part, value) {
				return
			}
		}
	}
	h.Add("Vary", value)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
