// Package middleware holds the gin middlewares shared by the API handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"motortrade/internal/http/httperr"
)

const userIDKey = "mt_user_id"

// Verifier resolves a bearer token to a dealer id.
type Verifier interface {
	Verify(raw string) (string, error)
}

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{Error: "missing bearer token"})
			return
		}
		id, err := v.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{Error: "invalid bearer token"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present. A bad token
// is still an error; a missing one is an anonymous request.
func OptionalAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.Next()
			return
		}
		id, err := v.Verify(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, httperr.ErrorResponse{Error: "invalid bearer token"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// UserID is empty for anonymous requests.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
