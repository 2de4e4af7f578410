package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/metrics"
	"github.com/creerlio2026/creerlio-platform-sub005/pkg/requestcontext"
)

// Middleware enforces the limiter per client IP. When the limiter itself
// errors the request is allowed through; verification availability outranks
// throttling precision.
func Middleware(limiter Limiter, publisher *audit.Publisher, m *metrics.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			clientIP := requestcontext.ClientIP(ctx)
			result, err := limiter.Allow(ctx, clientIP)
			if err != nil {
				logger.WarnContext(ctx, "rate limiter unavailable, allowing request",
					"client_ip", clientIP,
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}
			if result.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if m != nil {
				m.VerifyRateLimited.Inc()
			}
			if publisher != nil {
				publisher.Emit(ctx, audit.EventVerifyRateLimited, audit.Event{
					Decision: "denied",
				})
			}

			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error": "too many verification requests",
			})
		})
	}
}
