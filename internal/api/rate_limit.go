package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/artifactkit/internal/ratelimit"
)

type RateLimiter interface {
	AllowN(ctx context.Context, subject string, n int) (ratelimit.Decision, error)
}

// routeCost is the number of tokens a route takes. Routes that assemble
// documents or start queue work cost more than single-asset tools.
var routeCost = map[string]int{
	"/v1/jobs/{id}/start": 5,
	"/v1/pdf":             2,
	"/v1/scan":            2,
	"/v1/collage":         2,
	"/v1/convert":         2,
}

func costOf(route string) int {
	if n, ok := routeCost[route]; ok {
		return n
	}
	return 1
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !shouldRateLimit(r) {
			next.ServeHTTP(w, r)
			return
		}

		subject := strings.TrimSpace(r.Header.Get(s.rateLimitUserIDHeader))
		if subject == "" {
			subject = "anonymous"
		}
		route := routeLabel(r.URL.Path)
		subject = subject + ":" + route

		decision, err := s.rateLimiter.AllowN(r.Context(), subject, costOf(route))
		if err != nil {
			s.logger.Warn().Err(err).Str("subject", subject).Msg("rate limiter check failed")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		if decision.Allowed {
			next.ServeHTTP(w, r)
			return
		}

		retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		s.metrics.rateLimitRejected.WithLabelValues(route).Inc()
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "rate limit exceeded",
		})
	})
}

func shouldRateLimit(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return strings.HasPrefix(r.URL.Path, "/v1/")
}
