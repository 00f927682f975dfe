package broker

import (
	"errors"
	"net/http"
	"strconv"

	"realestate/internal/domain"
	"realestate/internal/middleware"
	"realestate/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	brokers := protected.Group("/brokers", middleware.RequireRole(domain.RoleBroker))
	{
		brokers.GET("/:id/dashboard", h.GetDashboard)
	}
}

// GetDashboard godoc
// @Summary Broker dashboard
// @Tags Brokers
// @Security BearerAuth
// @Param id path int true "Broker ID"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /brokers/{id}/dashboard [get]
func (h *Handler) GetDashboard(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid broker ID")
		return
	}

	dashboard, err := h.service.GetDashboard(c.Request.Context(), middleware.CallerFromContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
		case errors.Is(err, ErrForbidden):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load dashboard")
		}
		return
	}

	response.Success(c, http.StatusOK, dashboard)
}
