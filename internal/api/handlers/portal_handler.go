package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/api/middleware"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// PortalService defines the interface for portal sign-in
type PortalService interface {
	Login(ctx context.Context, project, password, ip string) (*services.PortalLoginResult, error)
	Logout(ctx context.Context, token string) error
}

// PortalAppointmentService lists the appointments a portal may show
type PortalAppointmentService interface {
	ListPortal(ctx context.Context, project string, tab *entities.Tab, page, pageSize int) (*services.Page[*entities.AppointmentListItem], error)
	CountPortalTabs(ctx context.Context, project string) (*entities.TabCounts, error)
}

// PortalHandler handles project portal requests
type PortalHandler struct {
	service      PortalService
	appointments PortalAppointmentService
	limiter      RateChecker
	policy       RatePolicy
}

// NewPortalHandler creates a new portal handler
func NewPortalHandler(service PortalService, appointments PortalAppointmentService, limiter RateChecker, policy RatePolicy) *PortalHandler {
	return &PortalHandler{
		service:      service,
		appointments: appointments,
		limiter:      limiter,
		policy:       policy,
	}
}

// Login handles POST /api/portal/{project}/login
func (h *PortalHandler) Login(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Password == "" {
		writeError(w, r, apperrors.NewValidationError("password is required"))
		return
	}

	ip := middleware.ClientIP(r)
	if !checkRate(w, r, h.limiter, h.policy, "portal:"+project+":"+ip, project) {
		return
	}

	result, err := h.service.Login(r.Context(), project, req.Password, ip)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ListAppointments handles GET /api/portal/{project}/appointments
func (h *PortalHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	tab, err := queryTab(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.appointments.ListPortal(r.Context(), r.PathValue("project"), tab, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Counts handles GET /api/portal/{project}/counts
func (h *PortalHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.appointments.CountPortalTabs(r.Context(), r.PathValue("project"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, counts)
}

// Logout handles POST /api/portal/{project}/logout
func (h *PortalHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), r.Header.Get(middleware.PortalSessionHeader)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
