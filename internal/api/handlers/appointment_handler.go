package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const defaultSearchLimit = 20

// AppointmentService defines the interface for appointment operations
type AppointmentService interface {
	List(ctx context.Context, principal *entities.Principal, q services.AppointmentQuery) (*services.Page[*entities.AppointmentListItem], error)
	CountTabs(ctx context.Context, principal *entities.Principal, project string) (*entities.TabCounts, error)
	Search(ctx context.Context, principal *entities.Principal, q, project string, limit int) ([]providers.AppointmentSearchHit, error)
	Get(ctx context.Context, principal *entities.Principal, id string) (*entities.Appointment, error)
	Patch(ctx context.Context, principal *entities.Principal, id string, patch entities.AppointmentPatch) (*entities.Appointment, error)
	CycleColor(ctx context.Context, principal *entities.Principal, id string) (entities.ColorIndicator, error)
	SetColor(ctx context.Context, principal *entities.Principal, id, value string) (entities.ColorIndicator, error)
	SetDND(ctx context.Context, principal *entities.Principal, id string, dnd bool) error
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	service AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(service AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
	}
}

// ListAppointments handles GET /api/appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
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

	query := r.URL.Query()
	result, err := h.service.List(r.Context(), p, services.AppointmentQuery{
		Project:  query.Get("project"),
		Tab:      tab,
		Search:   query.Get("q"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// CountAppointments handles GET /api/appointments/counts
func (h *AppointmentHandler) CountAppointments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	counts, err := h.service.CountTabs(r.Context(), p, r.URL.Query().Get("project"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, counts)
}

// SearchAppointments handles GET /api/appointments/search
func (h *AppointmentHandler) SearchAppointments(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, apperrors.NewValidationError("query parameter 'q' is required"))
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	hits, err := h.service.Search(r.Context(), p, q, r.URL.Query().Get("project"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"results": hits,
		"count":   len(hits),
	})
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	appt, err := h.service.Get(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appt)
}

// PatchAppointment handles PATCH /api/appointments/{id}
func (h *AppointmentHandler) PatchAppointment(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var raw map[string]json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := parsePatch(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	appt, err := h.service.Patch(r.Context(), p, r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appt)
}

// parsePatch keeps an explicit null procedure_ordered apart from an absent one
func parsePatch(raw map[string]json.RawMessage) (entities.AppointmentPatch, error) {
	var patch entities.AppointmentPatch
	for key, value := range raw {
		isNull := string(value) == "null"
		var target interface{}
		switch key {
		case "status":
			target = &patch.Status
		case "procedure_ordered":
			patch.SetProcedureOrdered = true
			if isNull {
				continue
			}
			target = &patch.ProcedureOrdered
		case "internal_process_complete":
			target = &patch.InternalProcessComplete
		case "is_viewed":
			target = &patch.IsViewed
		case "confirmed":
			target = &patch.Confirmed
		default:
			return patch, apperrors.NewValidationError("field " + key + " cannot be updated")
		}
		if isNull {
			return patch, apperrors.NewValidationError(key + " cannot be null")
		}
		if err := json.Unmarshal(value, target); err != nil {
			return patch, apperrors.NewValidationError("invalid value for " + key)
		}
	}
	if patch.IsEmpty() {
		return patch, apperrors.NewValidationError("no updatable fields supplied")
	}
	return patch, nil
}

// CycleColor handles POST /api/appointments/{id}/color/cycle
func (h *AppointmentHandler) CycleColor(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	color, err := h.service.CycleColor(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]entities.ColorIndicator{"color_indicator": color})
}

// SetColor handles PUT /api/appointments/{id}/color
func (h *AppointmentHandler) SetColor(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		ColorIndicator string `json:"color_indicator"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	color, err := h.service.SetColor(r.Context(), p, r.PathValue("id"), req.ColorIndicator)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]entities.ColorIndicator{"color_indicator": color})
}

// SetDND handles POST /api/appointments/{id}/dnd
func (h *AppointmentHandler) SetDND(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		DND *bool `json:"dnd"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DND == nil {
		writeError(w, r, apperrors.NewValidationError("dnd is required"))
		return
	}
	if err := h.service.SetDND(r.Context(), p, r.PathValue("id"), *req.DND); err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"dnd": *req.DND})
}
