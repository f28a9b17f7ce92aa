package middleware

import (
	"math"
	"net/http"
	"strconv"

	"fleet-equipment-api/pkg/logger"
	"fleet-equipment-api/pkg/ratelimit"
	"fleet-equipment-api/pkg/utils"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware counts every request against the client IP's budget
// for category and rejects it with 429 once the window is exhausted.
// Limiter failures let the request through.
func RateLimitMiddleware(limiter ratelimit.RateLimiter, category string) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := limiter.Limit(category)
		clientIP := c.ClientIP()

		result, err := limiter.Allow(c.Request.Context(), clientIP, category)
		if err != nil {
			logger.Log.WithError(err).WithField("category", category).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.ResetAfter.Seconds()))))
			logger.Log.WithFields(map[string]interface{}{
				"ip":       clientIP,
				"category": category,
				"path":     c.Request.URL.Path,
			}).Info("rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, utils.APIResponse{
				Success: false,
				Message: limit.Message,
			})
			return
		}

		c.Next()
	}
}

// setRateLimitHeaders sets standard rate limiting headers
func setRateLimitHeaders(c *gin.Context, result ratelimit.Result) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(result.ResetAfter.Seconds()))))
}
