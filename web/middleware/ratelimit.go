package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/recipebox/recipebox/logger"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures rate limiting
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
	KeyFunc           func(c *gin.Context) string
	// Exceeded answers a limited request. The default replies 429.
	Exceeded gin.HandlerFunc
}

// DefaultRateLimitConfig returns default rate limit config
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 10,
		BurstSize:         5,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = DefaultRateLimitConfig().KeyFunc
	}
	if config.BurstSize <= 0 {
		config.BurstSize = config.RequestsPerMinute
	}
	return &RateLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (l *RateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.visitors[key]
	if !ok {
		every := time.Minute / time.Duration(l.config.RequestsPerMinute)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), l.config.BurstSize)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep forgets keys idle for longer than olderThan and returns how many
// were removed.
func (l *RateLimiter) Sweep(olderThan time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-olderThan)
	removed := 0
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

// Handler limits requests per key. A non-positive RequestsPerMinute
// disables limiting.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.config.RequestsPerMinute <= 0 {
			c.Next()
			return
		}

		key := l.config.KeyFunc(c)
		if !l.allow(key) {
			logger.Warningf("Rate limit exceeded for %s on %s", key, c.Request.URL.Path)
			c.Header("Retry-After", strconv.Itoa(int(time.Minute/time.Second)/l.config.RequestsPerMinute+1))
			if l.config.Exceeded != nil {
				l.config.Exceeded(c)
			} else {
				c.String(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			}
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.config.RequestsPerMinute))
		c.Next()
	}
}
