// Package middleware holds HTTP middleware shared by the API routes.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimitConfig tunes the per-key token bucket.
type RateLimitConfig struct {
	// Interval is the time between replenished requests.
	Interval time.Duration
	Burst    int
}

// DefaultRateLimit allows 10 requests per second with a burst of 20,
// enough headroom for an interactive client without letting one user
// drain the provider budgets.
func DefaultRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Interval: time.Second / 10,
		Burst:    20,
	}
}

// RateLimiter applies a token bucket per key, typically per user.
type RateLimiter struct {
	mu     sync.Mutex
	config RateLimitConfig
	limits map[string]*rate.Limiter
}

// NewRateLimiter creates a rate limiter.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Interval <= 0 {
		config = DefaultRateLimit()
	}
	return &RateLimiter{
		config: config,
		limits: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(rl.config.Interval), rl.config.Burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow reports whether a request for the given key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Middleware rejects over-limit requests with 429. keyFn derives the
// bucket key from the request, typically the acting user.
func (rl *RateLimiter) Middleware(keyFn func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(keyFn(c)) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "too many requests, slow down",
				})
			}
			return next(c)
		}
	}
}
