package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"TenancyPlatform/pkg/errors"
	"TenancyPlatform/pkg/logger"
	"TenancyPlatform/pkg/ratelimit"
)

// RateLimitMiddleware ограничивает число запросов арендатора в минуту.
// Ошибки хранилища лимитов не блокируют запрос.
func RateLimitMiddleware(limiter ratelimit.RateLimiter, requestsPerMinute int, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := TenantKey(r)

			allowed, err := limiter.Allow(r.Context(), key, requestsPerMinute, time.Minute)
			if err != nil {
				log.Warn("Rate limiter unavailable, allowing request",
					logger.CtxField(r.Context()),
					logger.String("key", key),
					logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				errors.WriteHTTP(w, errors.New(errors.ErrTooManyRequests, "Rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP возвращает адрес клиента с учетом X-Forwarded-For
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
