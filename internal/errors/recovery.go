package errors

import (
	"net/http"
	"runtime/debug"

	"github.com/copyleftdev/HORDE/internal/logging"
)

// RecoveryMiddleware returns a middleware that recovers from panics.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					fields := map[string]interface{}{
						"error": rec,
						"stack": string(debug.Stack()),
					}
					if r != nil {
						fields["method"] = r.Method
						fields["path"] = r.URL.Path
						fields["query"] = r.URL.RawQuery
					}

					logger.Error("Recovered from panic", fields)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// ErrorHandler is a middleware that logs error responses from HTTP handlers.
func ErrorHandler(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			if rw.status >= http.StatusBadRequest {
				logger.Error("Request error", map[string]interface{}{
					"status": rw.status,
					"method": r.Method,
					"path":   r.URL.Path,
					"query":  r.URL.RawQuery,
					"ip":     r.RemoteAddr,
				})
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code before writing the header.
func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
