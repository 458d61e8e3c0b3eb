package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/intakedesk/internal/api/handlers"
	"github.com/zatekoja/intakedesk/internal/api/middleware"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

type MockPortalService struct {
	mock.Mock
}

func (m *MockPortalService) Login(ctx context.Context, project, password, ip string) (*services.PortalLoginResult, error) {
	args := m.Called(ctx, project, password, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PortalLoginResult), args.Error(1)
}

func (m *MockPortalService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type MockPortalAppointments struct {
	mock.Mock
}

func (m *MockPortalAppointments) ListPortal(ctx context.Context, project string, tab *entities.Tab, page, pageSize int) (*services.Page[*entities.AppointmentListItem], error) {
	args := m.Called(ctx, project, tab, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Page[*entities.AppointmentListItem]), args.Error(1)
}

func (m *MockPortalAppointments) CountPortalTabs(ctx context.Context, project string) (*entities.TabCounts, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TabCounts), args.Error(1)
}

var portalPolicy = handlers.RatePolicy{Limit: 5, Window: 15 * time.Minute}

func TestPortalHandler_Login(t *testing.T) {
	service := new(MockPortalService)
	limiter := new(MockRateChecker)
	handler := handlers.NewPortalHandler(service, new(MockPortalAppointments), limiter, portalPolicy)

	limiter.On("Check", mock.Anything, "portal:acme:10.0.0.8", 5, 15*time.Minute, "acme", "10.0.0.8").
		Return(providers.RateDecision{Allowed: true, Limit: 5, Remaining: 4}, nil)
	service.On("Login", mock.Anything, "acme", "portal-pass", "10.0.0.8").
		Return(&services.PortalLoginResult{SessionToken: "opaque"}, nil)

	req := newRequest(http.MethodPost, "/api/portal/acme/login", `{"password":"portal-pass"}`, nil)
	req.RemoteAddr = "10.0.0.8:4000"
	w := serve("POST /api/portal/{project}/login", handler.Login, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "opaque", body["session_token"])
}

func TestPortalHandler_Login_LimiterDown(t *testing.T) {
	service := new(MockPortalService)
	limiter := new(MockRateChecker)
	handler := handlers.NewPortalHandler(service, new(MockPortalAppointments), limiter, portalPolicy)

	limiter.On("Check", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(providers.RateDecision{Limit: 5, RetryAfter: 15 * time.Minute},
			apperrors.NewRateLimitedError("too many attempts, try again later"))

	req := newRequest(http.MethodPost, "/api/portal/acme/login", `{"password":"portal-pass"}`, nil)
	w := serve("POST /api/portal/{project}/login", handler.Login, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "900", w.Header().Get("Retry-After"))
	service.AssertNotCalled(t, "Login")
}

func TestPortalHandler_ListAppointments(t *testing.T) {
	appointments := new(MockPortalAppointments)
	handler := handlers.NewPortalHandler(new(MockPortalService), appointments, new(MockRateChecker), portalPolicy)

	tab := entities.TabFuture
	appointments.On("ListPortal", mock.Anything, "acme", &tab, 1, 0).
		Return(&services.Page[*entities.AppointmentListItem]{Data: []*entities.AppointmentListItem{}, Page: 1, PageSize: 50}, nil)

	req := newRequest(http.MethodGet, "/api/portal/acme/appointments?tab=future&page=1", "", nil)
	w := serve("GET /api/portal/{project}/appointments", handler.ListAppointments, req)

	assert.Equal(t, http.StatusOK, w.Code)
	appointments.AssertExpectations(t)
}

func TestPortalHandler_Counts(t *testing.T) {
	appointments := new(MockPortalAppointments)
	handler := handlers.NewPortalHandler(new(MockPortalService), appointments, new(MockRateChecker), portalPolicy)

	appointments.On("CountPortalTabs", mock.Anything, "acme").
		Return(&entities.TabCounts{Future: 3, Total: 3}, nil)

	req := newRequest(http.MethodGet, "/api/portal/acme/counts", "", nil)
	w := serve("GET /api/portal/{project}/counts", handler.Counts, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, float64(3), body["future"])
}

func TestPortalHandler_Logout(t *testing.T) {
	service := new(MockPortalService)
	handler := handlers.NewPortalHandler(service, new(MockPortalAppointments), new(MockRateChecker), portalPolicy)
	service.On("Logout", mock.Anything, "opaque").Return(nil)

	req := newRequest(http.MethodPost, "/api/portal/acme/logout", "", nil)
	req.Header.Set(middleware.PortalSessionHeader, "opaque")
	w := serve("POST /api/portal/{project}/logout", handler.Logout, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	service.AssertExpectations(t)
}
