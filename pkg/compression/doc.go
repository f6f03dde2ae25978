// Package compression encodes buffered response bodies with brotli, gzip or
// zstd according to the client's Accept-Encoding and the configured policy.
//
// Redirects and error responses, bodies below min_compress_size, responses
// that already carry a Content-Encoding and media types outside
// compress_types are left untouched.
package compression
