package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helpdesk-inbox/backend/pkg/errors"
	"helpdesk-inbox/backend/pkg/jwt"
	"helpdesk-inbox/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *jwt.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := jwt.NewService("secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.GET("/me", JWTAuthMiddleware(svc, logger.Discard()), func(c *gin.Context) {
		c.String(http.StatusOK, OperatorID(c))
	})
	return r, svc
}

func TestJWTAuthMiddleware(t *testing.T) {
	r, svc := newAuthRouter(t)
	token, err := svc.GenerateToken("op-7", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "bearer token", header: "Bearer " + token, status: http.StatusOK, body: "op-7"},
		{name: "raw token", header: token, status: http.StatusOK, body: "op-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestOriginAllowed(t *testing.T) {
	allowed := []string{"http://localhost:3000", "*.vercel.app"}

	assert.True(t, OriginAllowed("", allowed))
	assert.True(t, OriginAllowed("http://localhost:3000", allowed))
	assert.True(t, OriginAllowed("https://inbox.vercel.app", allowed))
	assert.False(t, OriginAllowed("https://evil.example", allowed))
	assert.True(t, OriginAllowed("https://anything", []string{"*"}))
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"*.vercel.app"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.vercel.app")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.vercel.app", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(logger.Discard(), RateLimiterOptions{Limit: 0.0001, Burst: 2})

	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.Use(limiter.Middleware())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
