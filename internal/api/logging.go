package api

import (
	"net/http"
	"time"

	"github.com/dunamismax/artifactkit/internal/id"
	"github.com/dunamismax/artifactkit/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// withRequestLog attaches a request-scoped logger and logs one line per request.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = id.New()
		}
		w.Header().Set(requestIDHeader, requestID)

		logger := s.logger.With().Str("request_id", requestID).Logger()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r.WithContext(logging.WithContext(r.Context(), logger)))

		event := logger.Info()
		if recorder.status >= http.StatusInternalServerError {
			event = logger.Error()
		} else if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			event = logger.Debug()
		}
		event.
			Str("method", r.Method).
			Str("route", routeLabel(r.URL.Path)).
			Int("status", recorder.status).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}
