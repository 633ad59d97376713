// internal/services/gateway/ratelimit.go
package gateway

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"

	"github.com/gorilla/mux"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client. Buckets for idle clients expire.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
	errs     *apperrors.ErrorHandler
	logger   logger.Logger
}

func NewRateLimiter(requestsPerSecond, burst, size int, idle time.Duration, errs *apperrors.ErrorHandler, log logger.Logger) *RateLimiter {
	if size <= 0 {
		size = 10000
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](size, nil, idle),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		errs:     errs,
		logger:   log,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// clientKey prefers the first X-Forwarded-For hop over the socket address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) Middleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if !rl.Allow(key) {
				logger.FromContext(r.Context(), rl.logger).Warn("rate limit exceeded", map[string]interface{}{
					"client": key,
					"path":   r.URL.Path,
					"method": r.Method,
				})
				w.Header().Set("Retry-After", "1")
				rl.errs.HandleHTTPError(w, r, apperrors.NewRateLimitedError(key))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
