package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/KamranYsupov/TaxiDriverBot/internal/http/middleware"
)

func newTestRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.AdminToken(token))
	r.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func do(r *gin.Engine, auth string) int {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAdminToken_MissingHeader(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, do(newTestRouter("secret"), ""))
}

func TestAdminToken_InvalidBearerPrefix(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, do(newTestRouter("secret"), "Token secret"))
}

func TestAdminToken_WrongToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, do(newTestRouter("secret"), "Bearer secreT"))
}

func TestAdminToken_Valid(t *testing.T) {
	assert.Equal(t, http.StatusOK, do(newTestRouter("secret"), "Bearer secret"))
}

func TestAdminToken_DisabledWithoutToken(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, do(newTestRouter(""), "Bearer "))
}
