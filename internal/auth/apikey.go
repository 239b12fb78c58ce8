package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facesearch/internal/config"
)

const headerName = "X-API-Key"

const (
	// Context keys set by the middleware for downstream handlers.
	CtxUserID = "auth_user_id"
	CtxRole   = "auth_role"

	RoleOfficer = "officer"
	RoleAdmin   = "admin"
)

// APIKeyMiddleware validates the X-API-Key header against the configured
// keys and attaches the caller identity to the request context. If no
// keys are configured, authentication is disabled and all callers act as
// an anonymous admin (development mode).
func APIKeyMiddleware(keys []config.APIKeyRef) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(keys) == 0 {
			c.Set(CtxUserID, "anonymous")
			c.Set(CtxRole, RoleAdmin)
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		for _, ref := range keys {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(ref.Key)) == 1 {
				role := ref.Role
				if role == "" {
					role = RoleOfficer
				}
				c.Set(CtxUserID, ref.UserID)
				c.Set(CtxRole, role)
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "invalid API key",
		})
	}
}

// RequireAdmin rejects callers whose key is not bound to the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin role required",
			})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller id set by the middleware.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserID)
}
