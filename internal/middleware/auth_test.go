package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"realestate/internal/domain"
	"realestate/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func callerEcho(c *gin.Context) {
	caller := CallerFromContext(c)
	if caller == nil {
		c.JSON(http.StatusOK, gin.H{"anonymous": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": caller.ID, "role": caller.Role})
}

func serve(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", 1*time.Hour)
	validToken, _ := jwtService.GenerateToken(42, "admin")

	router := gin.New()
	router.Use(JWTAuth(jwtService))
	router.GET("/protected", callerEcho)

	w := serve(router, "Bearer "+validToken)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
	assert.Contains(t, w.Body.String(), "admin")
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	jwtService := jwt.New("wrong-secret", 1*time.Hour)

	router := gin.New()
	router.Use(JWTAuth(jwtService))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("This handler should not be reached")
	})

	w := serve(router, "Bearer invalid-jwt-here")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestJWTAuth_NoToken(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuth(jwt.New("secret", time.Hour)))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := serve(router, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_HEADER_MISSING")
}

func TestJWTAuth_WrongFormat(t *testing.T) {
	router := gin.New()
	router.Use(JWTAuth(jwt.New("secret", time.Hour)))
	router.GET("/protected", func(c *gin.Context) {
		t.Fatal("Should not reach here")
	})

	w := serve(router, "Basic dGVzdA==")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestIdentify_AnonymousPassesThrough(t *testing.T) {
	router := gin.New()
	router.Use(Identify(jwt.New("secret", time.Hour)))
	router.GET("/protected", callerEcho)

	w := serve(router, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")
}

func TestIdentify_RejectsBadToken(t *testing.T) {
	router := gin.New()
	router.Use(Identify(jwt.New("secret", time.Hour)))
	router.GET("/protected", callerEcho)

	w := serve(router, "Bearer garbage")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	jwtService := jwt.New("secret", time.Hour)
	adminToken, _ := jwtService.GenerateToken(1, string(domain.RoleAdmin))
	brokerToken, _ := jwtService.GenerateToken(2, string(domain.RoleBroker))

	router := gin.New()
	router.Use(Identify(jwtService), AdminOnly())
	router.GET("/protected", callerEcho)

	assert.Equal(t, http.StatusOK, serve(router, "Bearer "+adminToken).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "Bearer "+brokerToken).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
}
