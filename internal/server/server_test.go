package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"realestate/internal/config"
	"realestate/internal/database"
	"realestate/internal/domain"
	jwtsvc "realestate/internal/pkg/jwt"
	"realestate/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type E2ETestSuite struct {
	router *gin.Engine
	users  *repository.UserRepository
	jwt    *jwtsvc.Service
}

type TestResponse struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   *ErrorDetail           `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, repository.Migrate(db))

	cfg := &config.Config{
		AppEnv:            "test",
		JWTSecret:         "e2e-secret",
		JWTAccessTTL:      time.Hour,
		RequestTimeout:    5 * time.Second,
		ApproveMaxRetries: 1,
		ResetTokenPepper:  "e2e-pepper",
		ResetTokenTTL:     time.Hour,
	}

	srv := New(cfg, db)
	t.Cleanup(srv.Hub().Close)

	return &E2ETestSuite{
		router: srv.Router(),
		users:  repository.NewUserRepository(db),
		jwt:    jwtsvc.New(cfg.JWTSecret, cfg.JWTAccessTTL),
	}
}

func (s *E2ETestSuite) makeRequest(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, TestResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp TestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func (s *E2ETestSuite) seedUser(t *testing.T, email string, role domain.UserRole, code *string) (*domain.User, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &domain.User{Email: email, Name: email, PasswordHash: string(hash), Role: role, ReferralCode: code}
	require.NoError(t, s.users.Create(context.Background(), u))

	token, err := s.jwt.GenerateToken(u.ID, string(role))
	require.NoError(t, err)
	return u, token
}

func application(email, code string) map[string]interface{} {
	return map[string]interface{}{
		"full_name":          "Applicant " + email,
		"dob":                "1988-02-14",
		"phone":              "+254700000000",
		"email":              email,
		"experience":         6,
		"locations":          []string{"Westlands", "Karen"},
		"message":            "Ready to list.",
		"referral_code_used": code,
	}
}

func appID(t *testing.T, resp TestResponse) int64 {
	t.Helper()
	app, ok := resp.Data["application"].(map[string]interface{})
	require.True(t, ok)
	return int64(app["id"].(float64))
}

func TestE2E_ReferralAdmission(t *testing.T) {
	s := setupTestSuite(t)

	ref := "REF1"
	referrer, referrerToken := s.seedUser(t, "referrer@x.com", domain.RoleBroker, &ref)
	_, adminToken := s.seedUser(t, "admin@x.com", domain.RoleAdmin, nil)

	w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/broker-applications", application("new@x.com", "REF1"), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := appID(t, resp)

	w, resp = s.makeRequest(t, http.MethodGet, "/api/v1/broker-applications", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), resp.Data["total"])

	w, resp = s.makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/broker-applications/%d/approve", id), nil, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "new broker created", resp.Data["message"])
	reset, ok := resp.Data["password_reset"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	resetToken, _ := reset["token"].(string)
	require.NotEmpty(t, resetToken)

	// placeholder credential cannot be used to sign in
	w, _ = s.makeRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "new@x.com", "password": "anything"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.makeRequest(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"token": resetToken, "new_password": "first-pass"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = s.makeRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "new@x.com", "password": "first-pass"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	newBroker := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, "broker", newBroker["role"])
	assert.Equal(t, false, newBroker["password_reset_required"])

	w, resp = s.makeRequest(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"token": resetToken, "new_password": "again-pass"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_RESET_TOKEN", resp.Error.Code)

	w, resp = s.makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/brokers/%d/dashboard", referrer.ID), nil, referrerToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "REF1", resp.Data["referral_code"])
	assert.Equal(t, float64(1), resp.Data["total_referrals"])

	w, resp = s.makeRequest(t, http.MethodGet, "/api/v1/broker-applications", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), resp.Data["total"])
}

func TestE2E_CustomerPromotion(t *testing.T) {
	s := setupTestSuite(t)
	_, adminToken := s.seedUser(t, "admin@x.com", domain.RoleAdmin, nil)

	w, _ := s.makeRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"name": "Cust", "email": "cust@x.com", "password": "password123",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/broker-applications", application("cust@x.com", ""), "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := appID(t, resp)

	w, resp = s.makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/broker-applications/%d/approve", id), nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "existing user promoted", resp.Data["message"])

	w, resp = s.makeRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "cust@x.com", "password": "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	user := resp.Data["user"].(map[string]interface{})
	assert.Equal(t, "broker", user["role"])
}

func TestE2E_ErrorMapping(t *testing.T) {
	s := setupTestSuite(t)
	_, adminToken := s.seedUser(t, "admin@x.com", domain.RoleAdmin, nil)
	_, customerToken := s.seedUser(t, "cust@x.com", domain.RoleCustomer, nil)

	w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/broker-applications", application("admin@x.com", ""), "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := appID(t, resp)

	w, resp = s.makeRequest(t, http.MethodPost, "/api/v1/broker-applications", application("admin@x.com", ""), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_SUBMISSION", resp.Error.Code)

	w, resp = s.makeRequest(t, http.MethodGet, "/api/v1/broker-applications", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp = s.makeRequest(t, http.MethodGet, "/api/v1/broker-applications", nil, customerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp = s.makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/broker-applications/%d/approve", id), nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_PRIVILEGED", resp.Error.Code)
	assert.Equal(t, true, resp.Error.Details["state_changed"])

	w, resp = s.makeRequest(t, http.MethodPost, fmt.Sprintf("/api/v1/broker-applications/%d/approve", id), nil, adminToken)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "APPLICATION_RESOLVED", resp.Error.Code)

	w, resp = s.makeRequest(t, http.MethodDelete, "/api/v1/broker-applications/9999", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp.Error.Details["retryable"])
}

func TestE2E_AdminReissuesPasswordReset(t *testing.T) {
	s := setupTestSuite(t)
	_, adminToken := s.seedUser(t, "admin@x.com", domain.RoleAdmin, nil)
	locked, brokerToken := s.seedUser(t, "locked@x.com", domain.RoleBroker, nil)

	path := fmt.Sprintf("/api/v1/admin/users/%d/password-reset", locked.ID)

	w, _ := s.makeRequest(t, http.MethodPost, path, nil, brokerToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, resp := s.makeRequest(t, http.MethodPost, path, nil, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reset := resp.Data["password_reset"].(map[string]interface{})

	w, _ = s.makeRequest(t, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{"token": reset["token"].(string), "new_password": "fresh-pass"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = s.makeRequest(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "locked@x.com", "password": "fresh-pass"}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestE2E_DashboardIsBrokerOnly(t *testing.T) {
	s := setupTestSuite(t)
	admin, adminToken := s.seedUser(t, "admin@x.com", domain.RoleAdmin, nil)

	w, resp := s.makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/brokers/%d/dashboard", admin.ID), nil, adminToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

func TestE2E_Health(t *testing.T) {
	s := setupTestSuite(t)

	w, resp := s.makeRequest(t, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp.Data["status"])
}
