package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/africycle/africycle/internal/metrics"
)

// responseWriter captures the response code for logging and metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs every request with a generated request id,
// method, route, duration and response code.
func LoggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			respWriter := newResponseWriter(w)
			respWriter.Header().Set("X-Request-Id", requestID)

			handler.ServeHTTP(respWriter, req)

			event := logger.Info()
			if respWriter.statusCode >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("request_id", requestID).
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("client_ip", req.RemoteAddr).
				Dur("duration", time.Since(start)).
				Int("response_code", respWriter.statusCode).
				Msg("api")
		})
	}
}

// MetricsMiddleware records request latency per route and status code.
func MetricsMiddleware() mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			respWriter := newResponseWriter(w)

			handler.ServeHTTP(respWriter, req)

			route := req.URL.Path
			if current := mux.CurrentRoute(req); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			metrics.RequestDuration.
				WithLabelValues(route, strconv.Itoa(respWriter.statusCode)).
				Observe(time.Since(start).Seconds())
		})
	}
}
