package middleware

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
)

// ErrorPage returns the small HTML body sent with an error status.
func ErrorPage(status int) []byte {
	text := http.StatusText(status)
	if text == "" {
		text = "Error"
	}
	title := html.EscapeString(fmt.Sprintf("%d %s", status, text))
	return []byte("<!DOCTYPE html>\n<html>\n<head><title>" + title + "</title></head>\n" +
		"<body>\n<h1>" + title + "</h1>\n</body>\n</html>\n")
}

// WriteErrorPage writes status with its HTML error page. Headers already
// set on w are kept.
func WriteErrorPage(w http.ResponseWriter, status int) {
	body := ErrorPage(status)
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
