package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"crowdfund-api/internal/pkg/jwtutil"
	"crowdfund-api/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// AuthJWT rejects requests without a valid access token.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "authentication credentials were not provided")
			return
		}
		if !authenticate(c, secret, authHeader) {
			return
		}
		c.Next()
	}
}

// OptionalAuthJWT lets anonymous requests through but still rejects a
// header that is present and invalid.
func OptionalAuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Next()
			return
		}
		if !authenticate(c, secret, authHeader) {
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or 0 for anonymous requests.
func UserID(c *gin.Context) uint {
	v, ok := c.Get(ContextUserIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}

func authenticate(c *gin.Context, secret, authHeader string) bool {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
		return false
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	claims, err := jwtutil.ParseToken(secret, token)
	if err != nil {
		response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
		return false
	}

	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextUsernameKey, claims.Username)
	return true
}
