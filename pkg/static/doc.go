// Package static serves files from a document root.
//
// Only GET and HEAD are served. Paths are percent-decoded and checked for
// ".." segments and NUL bytes before any filesystem access, and the final
// file is required to resolve inside the canonical document root. Responses
// carry a weak ETag derived from size and modification time, Last-Modified
// and Accept-Ranges; conditional requests get 304 with no body.
package static
