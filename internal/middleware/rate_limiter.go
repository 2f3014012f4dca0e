package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterCleanupEvery = time.Minute
)

// RateLimiterConfig configures rate limiting behavior
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterMap stores rate limiters per client IP
type rateLimiterMap struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   RateLimiterConfig
}

func newRateLimiterMap(config RateLimiterConfig) *rateLimiterMap {
	if config.Burst < 1 {
		config.Burst = 1
	}
	return &rateLimiterMap{
		visitors: make(map[string]*visitor),
		config:   config,
	}
}

// getLimiter returns or creates the limiter for ip
func (rl *rateLimiterMap) getLimiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// evictIdle drops limiters not used since before cutoff
func (rl *rateLimiterMap) evictIdle(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
			evicted++
		}
	}
	return evicted
}

func (rl *rateLimiterMap) cleanup() {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()

	for now := range ticker.C {
		rl.evictIdle(now.Add(-limiterIdleTTL))
	}
}

// RateLimiterMiddleware limits requests per client IP. A non-positive
// RequestsPerSecond disables limiting.
func RateLimiterMiddleware(config RateLimiterConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiterMap := newRateLimiterMap(config)
	go limiterMap.cleanup()

	return func(c *gin.Context) {
		limiter := limiterMap.getLimiter(c.ClientIP(), time.Now())

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := reservation.DelayFrom(time.Now()).Seconds()
			reservation.Cancel()

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
