package middleware

import (
	"net/http"

	"catalog-service/internal/models"
	"github.com/gin-gonic/gin"
)

// TenantMiddleware resolves the tenant of a request. A tenant_id already set
// by IstioAuth wins over the X-Tenant-ID header. Requests without a tenant
// are rejected.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			tenantID = c.GetHeader("X-Tenant-ID")
		}

		if tenantID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Success:    false,
				StatusCode: http.StatusUnauthorized,
				Message:    "Tenant ID is required",
				Error: &models.Error{
					Code:    "TENANT_REQUIRED",
					Message: "Tenant ID is required. Include the X-Tenant-ID header.",
				},
			})
			return
		}

		c.Set("tenant_id", tenantID)
		c.Next()
	}
}

// GetTenantID retrieves the tenant ID from gin context
func GetTenantID(c *gin.Context) string {
	return c.GetString("tenant_id")
}
