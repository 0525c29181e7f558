package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"netqa/internal/ratelimit"
)

func newAskRouter(limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	limiter := ratelimit.NewMemoryLimiter(time.Minute)

	router.POST("/ask",
		func(c *gin.Context) { c.Set(ContextUserIDKey, uint(1)) },
		RateLimitByUser(limiter, "ask", limit),
		func(c *gin.Context) { c.String(http.StatusOK, "answer text") },
	)
	return router
}

func TestAskRateLimitSixthCallRejected(t *testing.T) {
	router := newAskRouter(5)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", nil))
		assert.Equal(t, http.StatusOK, w.Code, "call %d should stream", i+1)
		assert.Equal(t, "answer text", w.Body.String())
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	// Structured error only, no answer bytes.
	assert.NotContains(t, w.Body.String(), "answer text")
}

func TestRateLimitByUserRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	limiter := ratelimit.NewMemoryLimiter(time.Minute)
	router.POST("/ask",
		RateLimitByUser(limiter, "ask", 5),
		func(c *gin.Context) { c.String(http.StatusOK, "never") },
	)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ask", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
