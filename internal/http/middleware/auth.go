package middleware

import (
	"net/http"
	"strings"

	"photoquest/internal/domain"
	"photoquest/internal/logger"
	"photoquest/internal/service"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// JWT requires a valid bearer token and stores the caller in the gin context
// under "user_id", "role" and "principal".
func JWT(auth service.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "kind": string(domain.KindUnauthorized)})
			return
		}

		p, err := auth.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "kind": string(domain.KindUnauthorized)})
			return
		}

		c.Set("user_id", p.UserID)
		c.Set("role", string(p.Role))
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), p.UserID))
		c.Next()
	}
}

// AdminOnly must run after JWT.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required", "kind": string(domain.KindUnauthorized)})
			return
		}
		if !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required", "kind": string(domain.KindForbidden)})
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the caller stored by JWT.
func GetPrincipal(c *gin.Context) (domain.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return domain.Principal{}, false
	}
	p, ok := v.(domain.Principal)
	return p, ok
}
