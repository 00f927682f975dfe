package middleware

import (
	"net/http"
	"strings"

	"realestate/internal/domain"
	"realestate/internal/pkg/jwt"
	"realestate/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"
)

// JWTAuth requires a valid bearer token and stores the caller in the context.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.AbortWithError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}
		authenticate(c, jwtService)
	}
}

// Identify verifies a bearer token when one is sent and otherwise lets the
// request through anonymously, leaving the decision to the handler.
func Identify(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		authenticate(c, jwtService)
	}
}

func authenticate(c *gin.Context, jwtService *jwt.Service) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		response.AbortWithError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
		return
	}

	claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
	if err != nil {
		response.AbortWithError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	c.Set(userIDKey, claims.UserID)
	c.Set(roleKey, claims.Role)
	c.Next()
}

// CallerFromContext returns the verified caller, or nil for anonymous requests.
func CallerFromContext(c *gin.Context) *domain.Caller {
	userID := c.GetInt64(userIDKey)
	role := c.GetString(roleKey)
	if userID <= 0 || role == "" {
		return nil
	}
	return &domain.Caller{ID: userID, Role: domain.UserRole(role)}
}
