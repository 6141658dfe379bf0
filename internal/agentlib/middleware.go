// internal/agentlib/middleware.go
package agentlib

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kathir-ks/a2a-ledger/internal/observability"
	log "github.com/sirupsen/logrus"
)

// loggingMiddleware logs and records metrics for every request.
func (ags *agentServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newLoggingResponseWriter(w)

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		// Label by route template so task IDs do not explode cardinality.
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		observability.RecordHTTPRequest(ags.agent.config.Role, r.Method, path, lrw.statusCode, duration)

		entry := log.WithFields(log.Fields{
			"role":        ags.agent.config.Role,
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"status":      lrw.statusCode,
			"duration_ms": duration.Milliseconds(),
		})
		if path == "/health" || path == "/metrics" {
			entry.Debug("Handled request")
			return
		}
		entry.Info("Handled request")
	})
}

// recoveryMiddleware recovers from panics outside the task boundary.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.WithField("panic", err).Error("Agent: Recovered from handler panic")
				writeError(w, http.StatusInternalServerError, "agent encountered an unexpected error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingResponseWriter wraps http.ResponseWriter to capture the status code.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newLoggingResponseWriter(w http.ResponseWriter) *loggingResponseWriter {
	// Default status code is 200 OK if WriteHeader is not called
	return &loggingResponseWriter{w, http.StatusOK}
}

// WriteHeader captures the status code before writing headers.
func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
