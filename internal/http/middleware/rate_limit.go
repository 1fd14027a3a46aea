package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/shoplite/shoplite-api/internal/http/response"
	"github.com/shoplite/shoplite-api/pkg/config"
	"github.com/shoplite/shoplite-api/pkg/logger"
)

// RateLimit caps requests per client IP using a fixed window counter in
// Redis. When Redis is unreachable the request is let through; availability
// wins over strictness here.
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			key := fmt.Sprintf("ratelimit:%s:%s", r.URL.Path, ip)

			count, err := rdb.Incr(r.Context(), key).Result()
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := rdb.Expire(r.Context(), key, cfg.Window).Err(); err != nil {
					logger.WarnContext(r.Context(), "failed to set rate limit window", "error", err)
				}
			}

			if count > int64(cfg.Requests) {
				response.RateLimit(w, "Too many requests, please try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
