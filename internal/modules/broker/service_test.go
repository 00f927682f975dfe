package broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"realestate/internal/database"
	"realestate/internal/domain"
	"realestate/internal/middleware"
	"realestate/internal/pkg/jwt"
	"realestate/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *repository.UserRepository) {
	t.Helper()

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	users := repository.NewUserRepository(db)
	return NewService(users), users
}

func seed(t *testing.T, users *repository.UserRepository, u domain.User) *domain.User {
	t.Helper()
	u.PasswordHash = "x"
	require.NoError(t, users.Create(context.Background(), &u))
	return &u
}

func TestGetDashboard(t *testing.T) {
	svc, users := setup(t)
	ctx := context.Background()

	code := "REF00001"
	b := seed(t, users, domain.User{Email: "b@x.com", Name: "Broker", Role: domain.RoleBroker, ReferralCode: &code})
	seed(t, users, domain.User{Email: "r1@x.com", Name: "R1", Role: domain.RoleBroker, ReferredBy: &b.ID})
	seed(t, users, domain.User{Email: "r2@x.com", Name: "R2", Role: domain.RoleBroker, ReferredBy: &b.ID})
	seed(t, users, domain.User{Email: "other@x.com", Role: domain.RoleCustomer})

	d, err := svc.GetDashboard(ctx, &domain.Caller{ID: b.ID, Role: domain.RoleBroker}, b.ID)

	require.NoError(t, err)
	assert.Equal(t, "REF00001", d.ReferralCode)
	assert.Equal(t, 2, d.TotalReferrals)
	require.Len(t, d.ReferredBrokers, 2)
	assert.Equal(t, "r1@x.com", d.ReferredBrokers[0].Email)
	assert.Equal(t, "r2@x.com", d.ReferredBrokers[1].Email)
}

func TestGetDashboard_NoReferralCode(t *testing.T) {
	svc, users := setup(t)

	b := seed(t, users, domain.User{Email: "b@x.com", Role: domain.RoleBroker})

	d, err := svc.GetDashboard(context.Background(), &domain.Caller{ID: b.ID, Role: domain.RoleBroker}, b.ID)

	require.NoError(t, err)
	assert.Equal(t, "N/A", d.ReferralCode)
	assert.Empty(t, d.ReferredBrokers)
	assert.Zero(t, d.TotalReferrals)
}

func TestGetDashboard_Access(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.GetDashboard(ctx, nil, 1)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.GetDashboard(ctx, &domain.Caller{ID: 2, Role: domain.RoleBroker}, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetDashboard(ctx, &domain.Caller{ID: 1, Role: domain.RoleAdmin}, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetDashboard(ctx, &domain.Caller{ID: 77, Role: domain.RoleBroker}, 77)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler_GetDashboard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, users := setup(t)
	b := seed(t, users, domain.User{Email: "b@x.com", Role: domain.RoleBroker})

	tokens := jwt.New("dashboard-secret", time.Hour)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1", middleware.JWTAuth(tokens)))

	call := func(path string, id int64, role domain.UserRole) *httptest.ResponseRecorder {
		tok, err := tokens.GenerateToken(id, string(role))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := call("/api/v1/brokers/1/dashboard", b.ID, domain.RoleBroker)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"referral_code":"N/A"`)

	w = call("/api/v1/brokers/1/dashboard", 2, domain.RoleBroker)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = call("/api/v1/brokers/abc/dashboard", b.ID, domain.RoleBroker)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GetDashboard_BrokersOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := setup(t)

	tokens := jwt.New("dashboard-secret", time.Hour)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1", middleware.JWTAuth(tokens)))

	for _, role := range []domain.UserRole{domain.RoleAdmin, domain.RoleCustomer} {
		tok, err := tokens.GenerateToken(1, string(role))
		require.NoError(t, err)

		// invalid id would be a 400 if the request reached the handler
		req := httptest.NewRequest(http.MethodGet, "/api/v1/brokers/abc/dashboard", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code, string(role))
	}
}
