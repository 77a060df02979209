package httpx

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/latticehq/lattice-auth/pkg/ratelimit"
	"github.com/latticehq/lattice-auth/pkg/slogx"
)

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, email, user ID, etc.)
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	// Check X-Forwarded-For header (comma-separated list)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKeyExtractor extracts the authenticated user ID from the request
// context. Returns empty string for anonymous requests.
func UserIDKeyExtractor(r *http.Request) string {
	return UserIDFromContext(r.Context())
}

// BodyFieldKeyExtractor extracts a key from a JSON request body field without
// consuming the body for downstream handlers. The body is re-buffered, so
// keep this to small payloads like login forms.
func BodyFieldKeyExtractor(fieldName string) KeyExtractor {
	return func(r *http.Request) string {
		return peekBodyField(r, fieldName)
	}
}

// CompositeKeyExtractor combines multiple key extractors with a separator.
// Example: CompositeKeyExtractor(":", IPKeyExtractor, BodyFieldKeyExtractor("email"))
// would produce keys like "192.168.1.1:alice@example.com".
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// RateLimitMiddleware throttles requests in the given traffic class, keyed
// by keyExtractor. Over-limit requests get a 429 with a Retry-After hint.
func RateLimitMiddleware(limiter *ratelimit.Limiter, class ratelimit.Class, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				// If we can't extract a key, allow the request but log it
				log.Warn("rate limit: unable to extract key, allowing request", "class", string(class))
				next.ServeHTTP(w, r)
				return
			}

			if !limiter.TryConsume(class, key) {
				retryAfter := max(int(limiter.RetryAfter(class, key).Seconds()), 1)

				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				if policy, ok := limiter.Policy(class); ok {
					w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", policy.RequestsPerWindow))
					w.Header().Set("X-RateLimit-Window", policy.Window.String())
				}

				log.Warn("rate limit exceeded",
					"class", string(class),
					"key", key,
					"endpoint", r.URL.Path,
					"retry_after", retryAfter,
				)

				WriteError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP throttles the class by client IP only.
func RateLimitByIP(limiter *ratelimit.Limiter, class ratelimit.Class) Middleware {
	return RateLimitMiddleware(limiter, class, IPKeyExtractor)
}
