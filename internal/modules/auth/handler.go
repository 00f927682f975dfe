package auth

import (
	"errors"
	"net/http"
	"strconv"

	"realestate/internal/middleware"
	"realestate/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/password-reset", h.ResetPassword)
	}
}

// RegisterAdminRoutes expects a group already restricted to admins.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.POST("/users/:id/password-reset", h.IssuePasswordReset)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	userGroup := protected.Group("/users")
	{
		userGroup.GET("/me", h.GetMe)
	}
}

// Register godoc
// @Summary Register customer
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Customer"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "This email is already registered")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": toUserPublic(user)})
}

// Login godoc
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		case errors.Is(err, ErrPasswordResetRequired):
			response.Error(c, http.StatusForbidden, "PASSWORD_RESET_REQUIRED", "Password must be reset before first login")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":  toUserPublic(result.User),
		"token": result.AccessToken,
	})
}

// GetMe godoc
// @Summary Current user
// @Tags Auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /users/me [get]
func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.service.Me(c.Request.Context(), middleware.CallerFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		case errors.Is(err, ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load user")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": toUserPublic(user)})
}

// ResetPassword godoc
// @Summary Set a new password with a one-time reset token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /auth/password-reset [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		if errors.Is(err, ErrInvalidResetToken) {
			response.Error(c, http.StatusBadRequest, "INVALID_RESET_TOKEN", "Reset token is invalid or expired")
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "RESET_FAILED", "Failed to reset password")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Password updated. You can now sign in."})
}

// IssuePasswordReset godoc
// @Summary Issue a one-time password reset token for an account
// @Tags Admin
// @Security BearerAuth
// @Param id path int true "User ID"
// @Produce json
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/password-reset [post]
func (h *Handler) IssuePasswordReset(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	reset, err := h.service.IssuePasswordResetFor(c.Request.Context(), middleware.CallerFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		case errors.Is(err, ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
		case errors.Is(err, ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to issue reset token")
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"password_reset": reset})
}
