package ratelimit

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/bayesian-ab/internal/errors"
)

// IPRateLimitMiddleware enforces the per-client budget on every request.
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := rl.AllowIP(c.ClientIP())
		writeHeaders(c, "X-RateLimit", result)
		if !result.Allowed {
			reject(c, result)
			return
		}
		c.Next()
	}
}

// EndpointRateLimitMiddleware applies a tighter per-client budget to an
// expensive route such as scenario simulation.
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limitPerMin int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("endpoint:%s:%s", endpoint, c.ClientIP())
		result := rl.Allow(key, limitPerMin, time.Minute)
		writeHeaders(c, "X-RateLimit-Endpoint", result)
		if !result.Allowed {
			reject(c, result)
			return
		}
		c.Next()
	}
}

func writeHeaders(c *gin.Context, prefix string, r Result) {
	c.Header(prefix+"-Limit", strconv.Itoa(r.Limit))
	c.Header(prefix+"-Remaining", strconv.Itoa(r.Remaining))
	c.Header(prefix+"-Reset", strconv.FormatInt(r.ResetAt.Unix(), 10))
}

func reject(c *gin.Context, r Result) {
	secs := int(math.Ceil(r.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
	apperrors.Abort(c, apperrors.NewRateLimitError(fmt.Sprintf("%ds", secs)))
}
