// Package ratelimit throttles callers of the HTTP callables.
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// window tracks one caller's recent requests
type window struct {
	minute []time.Time
	hour   []time.Time
}

// RateLimiter enforces per-minute and per-hour limits for each caller key
type RateLimiter struct {
	requestsPerMinute int
	requestsPerHour   int
	enabled           bool

	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter with the given limits. A zero
// limit disables that window.
func NewRateLimiter(requestsPerMinute, requestsPerHour int, enabled bool) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		enabled:           enabled,
		windows:           make(map[string]*window),
		now:               time.Now,
	}
}

// Allow checks whether key may make another request and records it if so
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w := rl.windows[key]
	if w == nil {
		w = &window{}
		rl.windows[key] = w
	}
	w.minute = filterTimes(w.minute, now.Add(-time.Minute))
	w.hour = filterTimes(w.hour, now.Add(-time.Hour))

	if rl.requestsPerMinute > 0 && len(w.minute) >= rl.requestsPerMinute {
		return false
	}
	if rl.requestsPerHour > 0 && len(w.hour) >= rl.requestsPerHour {
		return false
	}

	w.minute = append(w.minute, now)
	w.hour = append(w.hour, now)
	return true
}

// Prune drops callers with no request in the last hour
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-time.Hour)
	for key, w := range rl.windows {
		w.hour = filterTimes(w.hour, cutoff)
		if len(w.hour) == 0 {
			delete(rl.windows, key)
		}
	}
}

// Tracked returns the number of caller keys currently held
func (rl *RateLimiter) Tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// Middleware rejects callers over their limit with 429. The caller key is
// the authenticated user id when present, the client IP otherwise.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}
		if !rl.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"status":  "RESOURCE_EXHAUSTED",
					"message": "rate limit exceeded",
				},
			})
			return
		}
		c.Next()
	}
}

// filterTimes keeps only times after the cutoff
func filterTimes(times []time.Time, cutoff time.Time) []time.Time {
	result := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			result = append(result, t)
		}
	}
	return result
}
