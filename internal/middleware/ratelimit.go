package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"cinehub/internal/apperr"
)

const defaultLimiterClients = 10000

// RateLimiter keeps one token bucket per client IP. The least recently seen
// clients are evicted once the table is full.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) (*RateLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](defaultLimiterClients)
	if err != nil {
		return nil, err
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiters: cache, limit: rate.Limit(rps), burst: burst}, nil
}

// Allow takes a token from key's bucket.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Error(apperr.New(apperr.KindRateLimited, "Too many requests, please try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}
