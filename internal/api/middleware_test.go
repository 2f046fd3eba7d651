package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkoval/runcoach-app/internal/auth"
	"mkoval/runcoach-app/internal/domain"
	"mkoval/runcoach-app/internal/repository"
	"mkoval/runcoach-app/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuthService satisfies service.AuthService for middleware tests; only
// ResolveCurrentUser is exercised.
type stubAuthService struct {
	identity auth.Identity
	err      error

	lastCustomerInput *service.RegisterCustomerInput
}

func (s *stubAuthService) RegisterCoach(ctx context.Context, input service.RegisterCoachInput) (*domain.User, error) {
	return nil, nil
}
func (s *stubAuthService) RegisterCustomer(ctx context.Context, input service.RegisterCustomerInput) (*domain.User, error) {
	s.lastCustomerInput = &input
	return &domain.User{
		ID: uuid.New(), Name: input.Name, Email: input.Email,
		Role: domain.RoleCustomer, RunnerLevel: input.RunnerLevel, IsActive: true,
	}, nil
}
func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return "", nil, nil
}
func (s *stubAuthService) ResolveCurrentUser(ctx context.Context, token string) (auth.Identity, error) {
	return s.identity, s.err
}
func (s *stubAuthService) AssignCoachToCustomer(ctx context.Context, caller service.Caller, customerID, coachID uuid.UUID) (*domain.User, error) {
	return nil, nil
}
func (s *stubAuthService) ListCoaches(ctx context.Context, page repository.Page) ([]domain.User, error) {
	return nil, nil
}
func (s *stubAuthService) ListCustomersForCoach(ctx context.Context, caller service.Caller, coachID uuid.UUID, page repository.Page) ([]domain.User, error) {
	return nil, nil
}
func (s *stubAuthService) ListCustomers(ctx context.Context, caller service.Caller, page repository.Page) ([]domain.User, error) {
	return nil, nil
}
func (s *stubAuthService) UpdateCoachProfile(ctx context.Context, caller service.Caller, input service.UpdateCoachProfileInput) (*domain.User, error) {
	return nil, nil
}
func (s *stubAuthService) UpdateCustomerProfile(ctx context.Context, caller service.Caller, input service.UpdateCustomerProfileInput) (*domain.User, error) {
	return nil, nil
}
func (s *stubAuthService) DeactivateUser(ctx context.Context, caller service.Caller, userID uuid.UUID) error {
	return nil
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err      error
		expected int
	}{
		{fmt.Errorf("%w: bad input", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: who are you", domain.ErrAuthentication), http.StatusUnauthorized},
		{fmt.Errorf("%w: not yours", domain.ErrAuthorization), http.StatusForbidden},
		{fmt.Errorf("%w: no such thing", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: already there", domain.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: try later", domain.ErrTransient), http.StatusServiceUnavailable},
		{fmt.Errorf("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		respondError(c, tc.err)
		assert.Equal(t, tc.expected, w.Code, "error %v", tc.err)
	}

	// Unclassified errors must not leak internals.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, fmt.Errorf("database exploded at 10.0.0.3"))
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func newAuthTestRouter(svc service.AuthService) *gin.Engine {
	router := gin.New()
	router.GET("/secure", AuthMiddleware(svc), func(c *gin.Context) {
		caller, err := callerFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": caller.ID.String(), "role": caller.Role})
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	router := newAuthTestRouter(&stubAuthService{identity: auth.Identity{
		UserID:    userID,
		Role:      domain.RoleCoach,
		ExpiresAt: time.Now().Add(time.Hour),
	}})

	// Missing header.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong scheme.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Basic abc123")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Valid bearer token.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestAuthMiddlewareRejectedToken(t *testing.T) {
	router := newAuthTestRouter(&stubAuthService{
		err: fmt.Errorf("%w: token expired", domain.ErrAuthentication),
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer stale-token")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/coach-only",
		func(c *gin.Context) {
			c.Set(ContextUserIDKey, uuid.New())
			c.Set(ContextUserRoleKey, domain.RoleCustomer)
		},
		RoleMiddleware(domain.RoleCoach),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/coach-only", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
