package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(2, 2) // 2 requests per second, burst of 2

	router := gin.New()
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// First two requests should succeed
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	// Third request should be rate limited
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"message":"Rate limit exceeded"}`, w.Body.String())
}

func TestRateLimiterPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rl := NewRateLimiter(1, 1)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(AuthContextKey, c.GetHeader("X-User"))
		c.Next()
	})
	router.Use(RateLimit(rl))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	serve := func(user string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-User", user)
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve("alice"))
	assert.Equal(t, http.StatusTooManyRequests, serve("alice"))
	assert.Equal(t, http.StatusOK, serve("bob"))
}

func TestRateLimiterEvict(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.limiter("ip:1.2.3.4")
	rl.limiter("ip:5.6.7.8")

	assert.Equal(t, 0, rl.evict(time.Hour))
	assert.Equal(t, 2, rl.evict(-time.Second))
	assert.Empty(t, rl.clients)
}

func TestRateLimiterAnonymousByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/test", nil)
	c.Request.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "ip:10.0.0.7", clientKey(c))

	c.Set(AuthContextKey, "user-9")
	assert.Equal(t, "user:user-9", clientKey(c))
}

func TestRateLimiterZeroBurst(t *testing.T) {
	rl := NewRateLimiter(1, 0)

	ok, wait := rl.allow("ip:1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, time.Second, wait)
}
