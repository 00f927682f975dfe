package middleware

import (
	"net/http"

	"realestate/internal/domain"
	"realestate/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequireRole ensures that the authenticated user has one of the given roles.
func RequireRole(roles ...domain.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerFromContext(c)
		if caller == nil {
			response.AbortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		for _, role := range roles {
			if caller.Role == role {
				c.Next()
				return
			}
		}

		response.AbortWithError(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	}
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}
