// Package middleware provides reusable HTTP middleware for the API server.
package middleware

import (
	"net/http"
	"time"

	"github.com/marketsite/api/internal/logger"
)

// wrappedWriter captures the status code written by downstream handlers.
type wrappedWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *wrappedWriter) WriteHeader(code int) {
	if !rw.headerWritten {
		rw.statusCode = code
		rw.headerWritten = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *wrappedWriter) Write(b []byte) (int, error) {
	rw.headerWritten = true
	return rw.ResponseWriter.Write(b)
}

// Logger logs method, path, status code, and duration for every request.
// Run it after chi's RequestID so lines carry the request id.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		fields := logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": ww.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote":      r.RemoteAddr,
		}
		if ww.statusCode >= http.StatusInternalServerError {
			logger.Warn(r.Context(), "request completed", fields)
			return
		}
		logger.Info(r.Context(), "request completed", fields)
	})
}
