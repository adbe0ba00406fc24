package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/auth"
	"github.com/sakif/gthanks/internal/metrics"
	"github.com/sakif/gthanks/internal/ratelimit"
)

// RateLimit throttles a route group per caller.
//
// The key is "<scope>:user:<id>" for signed-in callers and
// "<scope>:ip:<addr>" otherwise, so it must run after auth.OptionalAuth and
// chi's RealIP. When the store itself fails the request is let through: a
// broken Redis should not take reservations down with it.
func RateLimit(store ratelimit.Store, scope string, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + callerKey(r)

			ok, err := store.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable",
					slog.String("scope", scope),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				if m != nil {
					m.RateLimited.WithLabelValues(scope).Inc()
				}
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "too many requests, slow down",
					"code":  apperror.CodeRateLimited,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func callerKey(r *http.Request) string {
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		return "user:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
