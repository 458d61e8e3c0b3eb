package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// UserAdminService defines the interface for account administration
type UserAdminService interface {
	Create(ctx context.Context, principal *entities.Principal, in entities.NewUserInput) (*services.CreatedUser, error)
	ReplaceProjects(ctx context.Context, principal *entities.Principal, userID string, projects []string) ([]string, error)
}

// FunctionService proxies named serverless functions
type FunctionService interface {
	Invoke(ctx context.Context, principal *entities.Principal, name string, payload json.RawMessage) (json.RawMessage, error)
}

// AutoParseRunner runs one auto-parse pass on demand
type AutoParseRunner interface {
	RunOnce(ctx context.Context) (*services.ParseRunResult, error)
}

// AnalyticsService reports per-project tab counts
type AnalyticsService interface {
	ProjectTabCounts(ctx context.Context, principal *entities.Principal) ([]services.ProjectCounts, error)
}

// AdminHandler handles admin-only requests
type AdminHandler struct {
	users     UserAdminService
	functions FunctionService
	parser    AutoParseRunner
	analytics AnalyticsService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users UserAdminService, functions FunctionService, parser AutoParseRunner, analytics AnalyticsService) *AdminHandler {
	return &AdminHandler{
		users:     users,
		functions: functions,
		parser:    parser,
		analytics: analytics,
	}
}

// CreateUser handles POST /api/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in entities.NewUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.users.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// ReplaceUserProjects handles PUT /api/admin/users/{id}/projects
func (h *AdminHandler) ReplaceUserProjects(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Projects []string `json:"projects"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	projects, err := h.users.ReplaceProjects(r.Context(), p, r.PathValue("id"), req.Projects)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// InvokeFunction handles POST /api/admin/functions/{name}
func (h *AdminHandler) InvokeFunction(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var payload json.RawMessage
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &payload); err != nil {
			writeError(w, r, err)
			return
		}
	}
	out, err := h.functions.Invoke(r.Context(), p, r.PathValue("name"), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(out) == 0 {
		out = json.RawMessage("null")
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"result": out})
}

// RunAutoParse handles POST /api/admin/auto-parse/run
func (h *AdminHandler) RunAutoParse(w http.ResponseWriter, r *http.Request) {
	result, err := h.parser.RunOnce(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ProjectAnalytics handles GET /api/admin/analytics/projects
func (h *AdminHandler) ProjectAnalytics(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := h.analytics.ProjectTabCounts(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if counts == nil {
		counts = []services.ProjectCounts{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"projects": counts})
}
