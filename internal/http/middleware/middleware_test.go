package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticVerifier map[string]string

func (s staticVerifier) Verify(raw string) (string, error) {
	if id, ok := s[raw]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func router(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, UserID(c)) })
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := router(AuthRequired(staticVerifier{"good": "dealer-1"}))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "bad").Code)

	w := get(r, "good")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dealer-1", w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	r := router(OptionalAuth(staticVerifier{"good": "dealer-1"}))

	w := get(r, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, get(r, "bad").Code)
	assert.Equal(t, "dealer-1", get(r, "good").Body.String())
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2)
	r := router(AuthRequired(staticVerifier{"a": "dealer-a", "b": "dealer-b"}), rl.Middleware())

	assert.Equal(t, http.StatusOK, get(r, "a").Code)
	assert.Equal(t, http.StatusOK, get(r, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "a").Code)
	assert.Equal(t, http.StatusOK, get(r, "b").Code, "buckets are per dealer")

	rl.evict(time.Now().Add(time.Hour))
	assert.Equal(t, http.StatusOK, get(r, "a").Code)
}
