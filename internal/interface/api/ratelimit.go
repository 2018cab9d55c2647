package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const minLimiterIdleTTL = time.Minute

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for
// longer than ttl are evicted.
type ipRateLimiter struct {
	mu       sync.Mutex
	limiters *cache.Cache
	r        rate.Limit
	b        int
}

func newIPRateLimiter(r rate.Limit, b int, ttl time.Duration) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: cache.New(ttl, 2*ttl),
		r:        r,
		b:        b,
	}
}

// limiterIdleTTL is how long an idle bucket needs to refill completely.
// Evicting after that loses no state.
func limiterIdleTTL(r rate.Limit, b int) time.Duration {
	ttl := minLimiterIdleTTL
	if r > 0 && r != rate.Inf {
		if refill := time.Duration(float64(b) / float64(r) * float64(time.Second)); refill > ttl {
			ttl = refill
		}
	}
	return ttl
}

func (i *ipRateLimiter) get(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	var limiter *rate.Limiter
	if v, ok := i.limiters.Get(ip); ok {
		limiter = v.(*rate.Limiter)
	} else {
		limiter = rate.NewLimiter(i.r, i.b)
	}
	// refresh expiry on every request
	i.limiters.SetDefault(ip, limiter)
	return limiter
}

// RateLimiter rejects requests beyond r per second (burst b) for each client IP
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := newIPRateLimiter(r, b, limiterIdleTTL(r, b))
	return func(c *gin.Context) {
		if !limiter.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
