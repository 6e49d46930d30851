package middleware

import (
	"github.com/gin-gonic/gin"
)

// DevUserID is the actor recorded for requests in development mode that
// carry no user.
const DevUserID = "00000000-0000-0000-0000-000000000001"

// DevelopmentAuthMiddleware stands in for IstioAuth in local development. The
// actor comes from the X-User-ID header when present.
func DevelopmentAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			userID = c.GetHeader("X-User-ID")
		}
		if userID == "" {
			userID = DevUserID
		}

		// RBAC middleware checks staff_id first
		c.Set("user_id", userID)
		c.Set("staff_id", userID)
		c.Next()
	}
}
