package handlers

import (
	"net"
	"net/http"
	"strings"

	"github.com/vidcast/vidcast/internal/logging"
)

// RateLimiter is the minimal interface required to guard credential issuance.
type RateLimiter interface {
	Allow(key string) bool
}

// rateLimitRetryAfter is advertised to throttled clients, in seconds.
const rateLimitRetryAfter = "30"

// allowRequest reports whether r may proceed under scope. A rejected request
// has already been answered with 429.
func allowRequest(limiter RateLimiter, w http.ResponseWriter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	if limiter.Allow(rateLimitKey(r, scope)) {
		return true
	}

	ctx := r.Context()
	logging.FromContext(ctx).Warn("request rate limited", "scope", scope, "clientIp", clientIP(r))
	w.Header().Set("Retry-After", rateLimitRetryAfter)
	respondError(ctx, w, http.StatusTooManyRequests, "too many requests, try again later")
	return false
}

func rateLimitKey(r *http.Request, scope string) string {
	ip := clientIP(r)
	if scope == "" {
		return ip
	}
	return scope + ":" + ip
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
