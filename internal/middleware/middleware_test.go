package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetTenantID(c)+"/"+c.GetString("user_id"))
	})
	return r
}

func TestTenantMiddleware(t *testing.T) {
	r := newRouter(TenantMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TENANT_REQUIRED")

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tenant-1/", w.Body.String())
}

func TestTenantMiddleware_PrefersContextTenant(t *testing.T) {
	r := newRouter(func(c *gin.Context) { c.Set("tenant_id", "from-jwt") }, TenantMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-ID", "from-header")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "from-jwt/", w.Body.String())
}

func TestDevelopmentAuthMiddleware(t *testing.T) {
	r := newRouter(DevelopmentAuthMiddleware(), TenantMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "tenant-1/"+DevUserID, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	req.Header.Set("X-User-ID", "user-7")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "tenant-1/user-7", w.Body.String())
}
