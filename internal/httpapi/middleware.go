package httpapi

import (
	"fmt"
	"net/http"
	"time"
)

const slowRequestThreshold = 250 * time.Millisecond

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// logRequests logs each request at a level picked from its outcome and counts
// it by route pattern and status class.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		duration := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%dxx", rec.status/100)).Inc()

		ev := s.logger.Debug()
		msg := "request completed"
		switch {
		case rec.status >= 500:
			ev, msg = s.logger.Error(), "request failed"
		case duration > slowRequestThreshold:
			ev, msg = s.logger.Warn(), "slow request"
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", route).
			Int("status", rec.status).
			Int64("duration_ms", duration.Milliseconds()).
			Msg(msg)
	})
}
