package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/api/handlers"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) List(ctx context.Context, principal *entities.Principal, q services.AppointmentQuery) (*services.Page[*entities.AppointmentListItem], error) {
	args := m.Called(ctx, principal, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Page[*entities.AppointmentListItem]), args.Error(1)
}

func (m *MockAppointmentService) CountTabs(ctx context.Context, principal *entities.Principal, project string) (*entities.TabCounts, error) {
	args := m.Called(ctx, principal, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.TabCounts), args.Error(1)
}

func (m *MockAppointmentService) Search(ctx context.Context, principal *entities.Principal, q, project string, limit int) ([]providers.AppointmentSearchHit, error) {
	args := m.Called(ctx, principal, q, project, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.AppointmentSearchHit), args.Error(1)
}

func (m *MockAppointmentService) Get(ctx context.Context, principal *entities.Principal, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentService) Patch(ctx context.Context, principal *entities.Principal, id string, patch entities.AppointmentPatch) (*entities.Appointment, error) {
	args := m.Called(ctx, principal, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentService) CycleColor(ctx context.Context, principal *entities.Principal, id string) (entities.ColorIndicator, error) {
	args := m.Called(ctx, principal, id)
	return args.Get(0).(entities.ColorIndicator), args.Error(1)
}

func (m *MockAppointmentService) SetColor(ctx context.Context, principal *entities.Principal, id, value string) (entities.ColorIndicator, error) {
	args := m.Called(ctx, principal, id, value)
	return args.Get(0).(entities.ColorIndicator), args.Error(1)
}

func (m *MockAppointmentService) SetDND(ctx context.Context, principal *entities.Principal, id string, dnd bool) error {
	args := m.Called(ctx, principal, id, dnd)
	return args.Error(0)
}

func TestAppointmentHandler_ListAppointments(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)

	tab := entities.TabNeedsReview
	service.On("List", mock.Anything, agentPrincipal, services.AppointmentQuery{
		Project:  "acme",
		Tab:      &tab,
		Search:   "smith",
		Page:     2,
		PageSize: 25,
	}).Return(&services.Page[*entities.AppointmentListItem]{
		Data:     []*entities.AppointmentListItem{},
		Page:     2,
		PageSize: 25,
	}, nil)

	req := newRequest(http.MethodGet, "/api/appointments?project=acme&tab=needs-review&q=smith&page=2&page_size=25", "", agentPrincipal)
	w := serve("GET /api/appointments", handler.ListAppointments, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(25), body["page_size"])
	service.AssertExpectations(t)
}

func TestAppointmentHandler_ListAppointments_BadTab(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)

	req := newRequest(http.MethodGet, "/api/appointments?tab=someday", "", agentPrincipal)
	w := serve("GET /api/appointments", handler.ListAppointments, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "List")
}

func TestAppointmentHandler_ListAppointments_ForbiddenProject(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)

	service.On("List", mock.Anything, agentPrincipal, mock.Anything).
		Return(nil, apperrors.NewForbiddenError("no access to project globex"))

	req := newRequest(http.MethodGet, "/api/appointments?project=globex", "", agentPrincipal)
	w := serve("GET /api/appointments", handler.ListAppointments, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAppointmentHandler_SearchAppointments_RequiresQuery(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)

	req := newRequest(http.MethodGet, "/api/appointments/search?q=%20", "", agentPrincipal)
	w := serve("GET /api/appointments/search", handler.SearchAppointments, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_SearchAppointments(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)

	service.On("Search", mock.Anything, agentPrincipal, "jane", "", 20).
		Return([]providers.AppointmentSearchHit{{ID: "a1"}}, nil)

	req := newRequest(http.MethodGet, "/api/appointments/search?q=jane", "", agentPrincipal)
	w := serve("GET /api/appointments/search", handler.SearchAppointments, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, float64(1), body["count"])
}

func TestAppointmentHandler_PatchAppointment_ProcedureOrderedTriState(t *testing.T) {
	tests := []struct {
		name string
		body string
		want entities.AppointmentPatch
	}{
		{
			name: "explicit null clears",
			body: `{"procedure_ordered":null}`,
			want: entities.AppointmentPatch{SetProcedureOrdered: true},
		},
		{
			name: "false is kept",
			body: `{"procedure_ordered":false}`,
			want: entities.AppointmentPatch{SetProcedureOrdered: true, ProcedureOrdered: boolPtr(false)},
		},
		{
			name: "absent leaves alone",
			body: `{"status":"Confirmed"}`,
			want: entities.AppointmentPatch{Status: strPtr("Confirmed")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockAppointmentService)
			handler := handlers.NewAppointmentHandler(service)
			service.On("Patch", mock.Anything, agentPrincipal, "a1", tt.want).
				Return(&entities.Appointment{ID: "a1"}, nil)

			req := newRequest(http.MethodPatch, "/api/appointments/a1", tt.body, agentPrincipal)
			w := serve("PATCH /api/appointments/{id}", handler.PatchAppointment, req)

			assert.Equal(t, http.StatusOK, w.Code)
			service.AssertExpectations(t)
		})
	}
}

func TestAppointmentHandler_PatchAppointment_Rejects(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"lead_name":"Mallory"}`,
		`{"is_viewed":null}`,
		`{"confirmed":"yes"}`,
		`not json`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			service := new(MockAppointmentService)
			handler := handlers.NewAppointmentHandler(service)

			req := newRequest(http.MethodPatch, "/api/appointments/a1", body, agentPrincipal)
			w := serve("PATCH /api/appointments/{id}", handler.PatchAppointment, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			service.AssertNotCalled(t, "Patch")
		})
	}
}

func TestAppointmentHandler_CycleColor(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)
	service.On("CycleColor", mock.Anything, agentPrincipal, "a1").Return(entities.ColorGreen, nil)

	req := newRequest(http.MethodPost, "/api/appointments/a1/color/cycle", "", agentPrincipal)
	w := serve("POST /api/appointments/{id}/color/cycle", handler.CycleColor, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "green", body["color_indicator"])
}

func TestAppointmentHandler_SetColor_Invalid(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)
	service.On("SetColor", mock.Anything, agentPrincipal, "a1", "purple").
		Return(entities.ColorIndicator(""), apperrors.NewValidationError("invalid color indicator"))

	req := newRequest(http.MethodPut, "/api/appointments/a1/color", `{"color_indicator":"purple"}`, agentPrincipal)
	w := serve("PUT /api/appointments/{id}/color", handler.SetColor, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointmentHandler_SetDND(t *testing.T) {
	service := new(MockAppointmentService)
	handler := handlers.NewAppointmentHandler(service)

	req := newRequest(http.MethodPost, "/api/appointments/a1/dnd", `{}`, agentPrincipal)
	w := serve("POST /api/appointments/{id}/dnd", handler.SetDND, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	service.On("SetDND", mock.Anything, agentPrincipal, "a1", true).
		Return(apperrors.NewExternalError("GHL not configured", nil))
	req = newRequest(http.MethodPost, "/api/appointments/a1/dnd", `{"dnd":true}`, agentPrincipal)
	w = serve("POST /api/appointments/{id}/dnd", handler.SetDND, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAppointmentHandler_NoPrincipal(t *testing.T) {
	handler := handlers.NewAppointmentHandler(new(MockAppointmentService))

	req := newRequest(http.MethodGet, "/api/appointments/a1", "", nil)
	w := serve("GET /api/appointments/{id}", handler.GetAppointment, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	decode(t, w, &body)
	require.Equal(t, "/auth", body["redirect"])
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
