package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter keeps one token bucket per client address. Buckets are
// created lazily and never evicted; the key space is bounded by the number
// of distinct clients.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newClientLimiter(rps, burst int) *clientLimiter {
	return &clientLimiter{
		limiters: map[string]*rate.Limiter{},
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// reserve takes one token for key. When the bucket is empty it reports the
// wait in whole seconds, rounded up so the client never retries early.
func (l *clientLimiter) reserve(key string) (ok bool, retryAfter int) {
	l.mu.Lock()
	lim, found := l.limiters[key]
	if !found {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()

	r := lim.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		sec := int(math.Ceil(d.Seconds()))
		if sec < 1 {
			sec = 1
		}
		return false, sec
	}
	return true, 0
}

// middleware rejects throttled requests with the payload the upload client
// parses for its retry delay.
func (l *clientLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := l.reserve(c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":      "error",
				"message":     fmt.Sprintf("rate limited: retry after %d", retryAfter),
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}
