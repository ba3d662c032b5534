package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/prasetya/cardvault/pkg/helpers"
	"github.com/prasetya/cardvault/pkg/response"
)

const CtxUserIDKey = "userID"

// bearerToken extracts the token from the Authorization header, falling
// back to the access_token cookie set at login for browser clients.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if tok, err := c.Cookie("access_token"); err == nil {
		return tok
	}
	return ""
}

// Auth is the token guard for protected routes: it verifies the bearer
// token's signature and expiry and injects the embedded user id into the
// Gin context. It holds no state beyond the verification secret.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			resp := response.Fail[any](c, http.StatusUnauthorized, "missing bearer token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := jwt.ParseToken(token)
		if err != nil {
			resp := response.Fail[any](c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Next()
	}
}
