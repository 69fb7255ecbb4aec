package auth

import (
	"log/slog"
	"net/http"

	"github.com/strom-dev/strom/pkg/observability"
	"github.com/strom-dev/strom/pkg/ratelimit"
)

// Middleware creates HTTP middleware from a Chain and an optional rate
// limiter. It checks the bypass list, runs authentication, injects the
// identity into the request context, and enforces the caller's tier
// quota, attaching X-RateLimit-* headers to the response.
func Middleware(chain *Chain, limiter *ratelimit.Limiter, limits TierLimits, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)

			if result.Decision == No {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				writeError(w, http.StatusUnauthorized, "invalid_request", "authentication required")
				return
			}
			if result.Decision != Yes || result.Identity == nil {
				writeError(w, http.StatusUnauthorized, "invalid_request", "authentication required")
				return
			}
			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				writeError(w, http.StatusInternalServerError, "server_error", "internal authentication error")
				return
			}

			if limiter != nil {
				if limit := limits.LimitFor(result.Identity); limit > 0 {
					res, err := limiter.Check(r.Context(), result.Identity.RateLimitKey(), limit)
					if err != nil {
						// A broken limiter store fails open; the request
						// proceeds without quota accounting.
						slog.Error("rate limit check failed", "error", err)
					} else {
						ratelimit.SetHeaders(w.Header(), res)
						if !res.Allowed {
							slog.Warn("rate limit exceeded",
								"subject", result.Identity.Subject,
								"tier", result.Identity.Tier,
								"retry_after", res.RetryAfter,
							)
							observability.RateLimitRejectedTotal.WithLabelValues(result.Identity.Tier).Inc()
							writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "rate limit exceeded")
							return
						}
					}
				}
			}

			ctx := SetIdentity(r.Context(), result.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":{"code":"` + code + `","message":"` + message + `"}}`))
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/readyz", "/metrics"}
