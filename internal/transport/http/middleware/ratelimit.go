package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "go-gin-marketplace/internal/transport/http/response"
)

func denyJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooManyRequests, "too many requests"))
}

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		denyJSON(c)
	}
}

// 超过该数量时清理闲置桶
const maxIdleBuckets = 10000

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type ipLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	idle    time.Duration
	buckets map[string]*ipBucket
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		if len(l.buckets) >= maxIdleBuckets {
			for k, v := range l.buckets {
				if now.Sub(v.seen) > l.idle {
					delete(l.buckets, k)
				}
			}
		}
		b = &ipBucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// RateLimitPerIP 每 IP 限速；deny 为空时返回 JSON 信封
func RateLimitPerIP(rps rate.Limit, burst int, deny gin.HandlerFunc) gin.HandlerFunc {
	if deny == nil {
		deny = denyJSON
	}
	l := &ipLimiter{rps: rps, burst: burst, idle: 10 * time.Minute, buckets: map[string]*ipBucket{}}
	return func(c *gin.Context) {
		if l.allow(c.ClientIP(), time.Now()) {
			c.Next()
			return
		}
		deny(c)
		c.Abort()
	}
}
