package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/intakedesk/internal/api/handlers"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

type MockUserAdminService struct {
	mock.Mock
}

func (m *MockUserAdminService) Create(ctx context.Context, principal *entities.Principal, in entities.NewUserInput) (*services.CreatedUser, error) {
	args := m.Called(ctx, principal, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CreatedUser), args.Error(1)
}

func (m *MockUserAdminService) ReplaceProjects(ctx context.Context, principal *entities.Principal, userID string, projects []string) ([]string, error) {
	args := m.Called(ctx, principal, userID, projects)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockFunctionService struct {
	mock.Mock
}

func (m *MockFunctionService) Invoke(ctx context.Context, principal *entities.Principal, name string, payload json.RawMessage) (json.RawMessage, error) {
	args := m.Called(ctx, principal, name, string(payload))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

type stubParseRunner struct {
	result *services.ParseRunResult
}

func (s *stubParseRunner) RunOnce(ctx context.Context) (*services.ParseRunResult, error) {
	return s.result, nil
}

type stubAnalytics struct {
	counts []services.ProjectCounts
}

func (s *stubAnalytics) ProjectTabCounts(ctx context.Context, principal *entities.Principal) ([]services.ProjectCounts, error) {
	return s.counts, nil
}

func TestAdminHandler_CreateUser(t *testing.T) {
	users := new(MockUserAdminService)
	handler := handlers.NewAdminHandler(users, nil, nil, nil)

	in := entities.NewUserInput{Email: "new@example.com", FullName: "New Agent", Role: entities.RoleAgent, Projects: []string{"acme"}}
	users.On("Create", mock.Anything, adminPrincipal, in).
		Return(&services.CreatedUser{User: &entities.User{Email: in.Email}, Role: in.Role, Projects: in.Projects, EmailSent: false, EmailError: "resend: 500"}, nil)

	req := newRequest(http.MethodPost, "/api/admin/users",
		`{"email":"new@example.com","full_name":"New Agent","role":"agent","projects":["acme"]}`, adminPrincipal)
	w := serve("POST /api/admin/users", handler.CreateUser, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, false, body["email_sent"])
	users.AssertExpectations(t)
}

func TestAdminHandler_ReplaceUserProjects(t *testing.T) {
	users := new(MockUserAdminService)
	handler := handlers.NewAdminHandler(users, nil, nil, nil)
	users.On("ReplaceProjects", mock.Anything, adminPrincipal, "u-9", []string{"acme", "globex"}).
		Return([]string{"acme", "globex"}, nil)

	req := newRequest(http.MethodPut, "/api/admin/users/u-9/projects", `{"projects":["acme","globex"]}`, adminPrincipal)
	w := serve("PUT /api/admin/users/{id}/projects", handler.ReplaceUserProjects, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminHandler_InvokeFunction(t *testing.T) {
	functions := new(MockFunctionService)
	handler := handlers.NewAdminHandler(nil, functions, nil, nil)
	functions.On("Invoke", mock.Anything, adminPrincipal, "sync-sheets-data", `{"project":"acme"}`).
		Return(json.RawMessage(`{"synced":12}`), nil)

	req := newRequest(http.MethodPost, "/api/admin/functions/sync-sheets-data", `{"project":"acme"}`, adminPrincipal)
	w := serve("POST /api/admin/functions/{name}", handler.InvokeFunction, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":{"synced":12}}`, w.Body.String())
}

func TestAdminHandler_InvokeFunction_NotAllowed(t *testing.T) {
	functions := new(MockFunctionService)
	handler := handlers.NewAdminHandler(nil, functions, nil, nil)
	functions.On("Invoke", mock.Anything, adminPrincipal, "drop-everything", "").
		Return(nil, apperrors.NewValidationError("unknown function drop-everything"))

	req := newRequest(http.MethodPost, "/api/admin/functions/drop-everything", "", adminPrincipal)
	w := serve("POST /api/admin/functions/{name}", handler.InvokeFunction, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_RunAutoParse(t *testing.T) {
	runner := &stubParseRunner{result: &services.ParseRunResult{Claimed: 3, Parsed: 2, Failed: 1}}
	handler := handlers.NewAdminHandler(nil, nil, runner, nil)

	req := newRequest(http.MethodPost, "/api/admin/auto-parse/run", "", adminPrincipal)
	w := serve("POST /api/admin/auto-parse/run", handler.RunAutoParse, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"claimed":3,"parsed":2,"failed":1}`, w.Body.String())
}

func TestAdminHandler_ProjectAnalytics_Empty(t *testing.T) {
	handler := handlers.NewAdminHandler(nil, nil, nil, &stubAnalytics{})

	req := newRequest(http.MethodGet, "/api/admin/analytics/projects", "", adminPrincipal)
	w := serve("GET /api/admin/analytics/projects", handler.ProjectAnalytics, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"projects":[]}`, w.Body.String())
}
