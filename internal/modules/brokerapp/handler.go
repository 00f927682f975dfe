package brokerapp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

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

// RegisterRoutes mounts the public submit endpoint and the admin endpoints.
// identify must attach the caller (if any); the service decides 401 vs 403.
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup, identify gin.HandlerFunc) {
	public := v1.Group("/broker-applications")
	{
		public.POST("", h.Submit)
	}

	admin := v1.Group("/broker-applications", identify)
	{
		admin.GET("", h.ListPending)
		admin.POST("/:id/approve", h.Approve)
		admin.DELETE("/:id", h.Reject)
	}
}

// Submit godoc
// @Summary Submit broker application
// @Tags Broker Applications
// @Accept json
// @Produce json
// @Param request body SubmitApplicationRequest true "Application"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /broker-applications [post]
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errorDetails(ErrValidation))
		return
	}

	dob, err := time.Parse(dobLayout, req.DateOfBirth)
	if err != nil {
		writeError(c, &FieldError{Fields: map[string]string{"DateOfBirth": "format=" + dobLayout}})
		return
	}

	app, err := h.service.Submit(c.Request.Context(), SubmitInput{
		FullName:         req.FullName,
		DateOfBirth:      dob,
		Phone:            req.Phone,
		Email:            req.Email,
		Experience:       req.Experience,
		Locations:        req.Locations,
		Message:          req.Message,
		ReferralCodeUsed: req.ReferralCodeUsed,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message":     "Application submitted successfully.",
		"application": toApplicationDTO(app),
	})
}

// ListPending godoc
// @Summary List pending broker applications
// @Tags Broker Applications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /broker-applications [get]
func (h *Handler) ListPending(c *gin.Context) {
	apps, err := h.service.ListPending(c.Request.Context(), middleware.CallerFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]ApplicationDTO, 0, len(apps))
	for i := range apps {
		out = append(out, toApplicationDTO(&apps[i]))
	}

	response.Success(c, http.StatusOK, gin.H{
		"applications": out,
		"total":        len(out),
	})
}

// Approve godoc
// @Summary Approve broker application
// @Tags Broker Applications
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Produce json
// @Success 200 {object} response.Response "existing user promoted"
// @Success 201 {object} response.Response "new broker created"
// @Failure 400 {object} response.Response "already privileged, application closed"
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /broker-applications/{id}/approve [post]
func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.service.Approve(c.Request.Context(), middleware.CallerFromContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == OutcomeCreated {
		status = http.StatusCreated
	}

	response.Success(c, status, ApproveResponse{
		Message:       result.Message,
		Outcome:       string(result.Outcome),
		Application:   toApplicationDTO(result.Application),
		User:          toAccountSummary(result.User),
		PasswordReset: result.PasswordReset,
	})
}

// Reject godoc
// @Summary Reject (delete) broker application
// @Tags Broker Applications
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Produce json
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /broker-applications/{id} [delete]
func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Reject(c.Request.Context(), middleware.CallerFromContext(c), id); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "Application rejected and removed.",
	})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid application ID")
		return 0, false
	}
	return id, true
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrDuplicateSubmission, http.StatusConflict, "DUPLICATE_SUBMISSION"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHORIZED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrAlreadyPrivileged, http.StatusBadRequest, "ALREADY_PRIVILEGED"},
	{ErrConcurrentApprovalConflict, http.StatusConflict, "APPROVAL_CONFLICT"},
	{ErrAlreadyResolved, http.StatusConflict, "APPLICATION_RESOLVED"},
	{ErrTimeout, http.StatusGatewayTimeout, "TIMEOUT"},
}

func writeError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.ErrorWithDetails(c, m.status, m.code, m.target.Error(), errorDetails(err))
			return
		}
	}

	_ = c.Error(err)
	response.ErrorWithDetails(c, http.StatusInternalServerError, "STORAGE_FAILURE", ErrStorageFailure.Error(), errorDetails(err))
}

func errorDetails(err error) gin.H {
	details := gin.H{
		"state_changed": StateChanged(err),
		"retryable":     Retryable(err),
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		details["fields"] = fe.Fields
	}
	return details
}
