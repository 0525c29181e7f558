package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"netqa/internal/ratelimit"
	"netqa/internal/transport/http/response"
)

// RateLimitByIP enforces a per-client-address quota on unauthenticated
// routes (registration, token issuance).
func RateLimitByIP(limiter ratelimit.Limiter, operation string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:ip:%s", operation, c.ClientIP())
		if rejected(c, limiter, key, limit) {
			return
		}
		c.Next()
	}
}

// RateLimitByUser enforces a per-identity quota; it must run after AuthJWT.
func RateLimitByUser(limiter ratelimit.Limiter, operation string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDAny, exists := c.Get(ContextUserIDKey)
		if !exists {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
			c.Abort()
			return
		}
		key := fmt.Sprintf("%s:user:%d", operation, userIDAny)
		if rejected(c, limiter, key, limit) {
			return
		}
		c.Next()
	}
}

func rejected(c *gin.Context, limiter ratelimit.Limiter, key string, limit int) bool {
	err := limiter.CheckAndIncrement(c.Request.Context(), key, limit)
	if err == nil {
		return false
	}

	var limitErr *ratelimit.LimitError
	if errors.As(err, &limitErr) {
		retryAfter := int(limitErr.RetryAfter.Round(time.Second).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
		response.Error(c, http.StatusTooManyRequests, response.CodeRateLimited,
			fmt.Sprintf("rate limit exceeded, retry after %ds", retryAfter))
		c.Abort()
		return true
	}

	// Limiter backend failure: refuse rather than silently waive the quota.
	response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "rate limiter unavailable")
	c.Abort()
	return true
}
