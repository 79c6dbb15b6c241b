package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter allows limit requests per window for each key, with bursts up to limit.
type RateLimiter struct {
	limit    int
	window   time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	lim, ok := rl.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(rl.window/time.Duration(rl.limit)), rl.limit)
		rl.limiters[key] = lim
	}
	rl.mu.Unlock()

	return lim.Allow()
}

func (rl *RateLimiter) Window() time.Duration {
	return rl.window
}

// RateLimit limits requests per client IP.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return limitWith(rl, "rate limit exceeded")
}

// AuthRateLimiter allows 5 login attempts per minute per IP.
func AuthRateLimiter() gin.HandlerFunc {
	return limitWith(NewRateLimiter(5, time.Minute), "too many authentication attempts, please try again later")
}

// TriggerRateLimiter allows limit manual cycle triggers per window per IP.
func TriggerRateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	return limitWith(NewRateLimiter(limit, window), "too many manual cycle triggers")
}

func limitWith(rl *RateLimiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       message,
				"retry_after": rl.window.Seconds(),
			})
			return
		}
		c.Next()
	}
}
