package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressionMiddleware compresses API responses with brotli or gzip, whichever the client prefers.
// Brotli wins when both are accepted.
func CompressionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shouldCompress(r) {
			next.ServeHTTP(w, r)
			return
		}

		var encoder io.WriteCloser
		encoding := negotiateEncoding(r.Header.Get("Accept-Encoding"))
		switch encoding {
		case "br":
			encoder = brotli.NewWriter(w)
		case "gzip":
			encoder = gzip.NewWriter(w)
		default:
			next.ServeHTTP(w, r)
			return
		}
		defer encoder.Close()

		w.Header().Set("Content-Encoding", encoding)
		w.Header().Add("Vary", "Accept-Encoding")
		w.Header().Del("Content-Length")

		next.ServeHTTP(&compressedResponseWriter{ResponseWriter: w, Writer: encoder}, r)
	})
}

// compressedResponseWriter wraps http.ResponseWriter with an encoder
type compressedResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

// Write compresses and writes data
func (cw *compressedResponseWriter) Write(data []byte) (int, error) {
	return cw.Writer.Write(data)
}

// negotiateEncoding picks br or gzip from an Accept-Encoding header. Codings with q=0 are refused.
func negotiateEncoding(header string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding == "" {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		if q == "q=0" || q == "q=0.0" || q == "q=0.00" || q == "q=0.000" {
			continue
		}
		accepted[coding] = true
	}

	switch {
	case accepted["br"]:
		return "br"
	case accepted["gzip"]:
		return "gzip"
	}
	return ""
}

// shouldCompress limits compression to API routes
func shouldCompress(r *http.Request) bool {
	if r.Header.Get("Content-Encoding") != "" {
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
