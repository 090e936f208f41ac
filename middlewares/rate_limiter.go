package middlewares

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	loginLimiters   = make(map[string]*rate.Limiter)
	loginLimitersMu sync.Mutex
)

// NewStrictRateLimiter throttles login/register attempts per client IP.
func NewStrictRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		loginLimitersMu.Lock()
		limiter, ok := loginLimiters[ip]
		if !ok {
			limiter = rate.NewLimiter(rate.Every(time.Minute/5), 5)
			loginLimiters[ip] = limiter
		}
		loginLimitersMu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many attempts, please wait a moment",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
