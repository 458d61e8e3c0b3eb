package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

// ProjectService defines the interface for tenant operations
type ProjectService interface {
	List(ctx context.Context, principal *entities.Principal) ([]*entities.Project, error)
	Get(ctx context.Context, principal *entities.Principal, name string) (*entities.Project, error)
	Create(ctx context.Context, principal *entities.Principal, in services.NewProjectInput) (*entities.Project, error)
	SetPortalPassword(ctx context.Context, principal *entities.Principal, name, password string) error
	Calendars(ctx context.Context, principal *entities.Principal, name string) ([]providers.Calendar, error)
	SyncTimezone(ctx context.Context, principal *entities.Principal, name string) (string, error)
}

// ProjectHandler handles project requests
type ProjectHandler struct {
	service ProjectService
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(service ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// ListProjects handles GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	projects, err := h.service.List(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*entities.Project{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"data":  projects,
		"count": len(projects),
	})
}

// GetProject handles GET /api/projects/{name}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.service.Get(r.Context(), p, r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, project)
}

// CreateProject handles POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.NewProjectInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	project, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, project)
}

// SetPortalPassword handles PUT /api/projects/{name}/portal-password
func (h *ProjectHandler) SetPortalPassword(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.SetPortalPassword(r.Context(), p, r.PathValue("name"), req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Calendars handles GET /api/projects/{name}/ghl/calendars
func (h *ProjectHandler) Calendars(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	calendars, err := h.service.Calendars(r.Context(), p, r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if calendars == nil {
		calendars = []providers.Calendar{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"calendars": calendars})
}

// SyncTimezone handles POST /api/projects/{name}/ghl/sync-timezone
func (h *ProjectHandler) SyncTimezone(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tz, err := h.service.SyncTimezone(r.Context(), p, r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"timezone": tz})
}
