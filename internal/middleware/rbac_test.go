package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/meridian-legal/docvault-api/internal/models"
)

func performRBAC(claims *models.JWTClaims, roles ...models.UserRole) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/document-links", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}

	handler := RequireRoles(roles...)
	handler(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return w
}

func TestRequireRolesAllows(t *testing.T) {
	w := performRBAC(&models.JWTClaims{UserID: "user-1", Role: models.RoleStaff}, models.RoleAdmin, models.RoleStaff)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesForbidsOtherRole(t *testing.T) {
	w := performRBAC(&models.JWTClaims{UserID: "user-1", Role: models.RoleStaff}, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	w := performRBAC(nil, models.RoleAdmin)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
