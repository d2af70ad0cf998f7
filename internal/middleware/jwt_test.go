package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meridian-legal/docvault-api/internal/models"
	"github.com/meridian-legal/docvault-api/internal/service"
)

const testSecret = "test-secret"

func newTestAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{
		AccessTokenSecret: testSecret,
		AccessTokenExpiry: time.Minute,
	})
}

func signTestToken(t *testing.T, secret string) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func performJWT(authHeader string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/document-links", nil)
	if authHeader != "" {
		c.Request.Header.Set("Authorization", authHeader)
	}

	handler := JWT(newTestAuthService())
	handler(c)
	if !c.IsAborted() {
		c.Status(http.StatusOK)
	}
	return w
}

func TestJWTMiddlewareAllowsValidToken(t *testing.T) {
	w := performJWT("Bearer " + signTestToken(t, testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestJWTMiddlewareMissingHeader(t *testing.T) {
	w := performJWT("")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareMalformedHeader(t *testing.T) {
	w := performJWT("Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareWrongSecret(t *testing.T) {
	w := performJWT("Bearer " + signTestToken(t, "other-secret"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
