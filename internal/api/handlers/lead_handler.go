package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// LeadService defines the interface for lead operations
type LeadService interface {
	List(ctx context.Context, principal *entities.Principal, project, search string, page, pageSize int) (*services.Page[*entities.Lead], error)
	Get(ctx context.Context, principal *entities.Principal, id string) (*entities.Lead, error)
}

// LeadHandler handles lead requests
type LeadHandler struct {
	service LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(service LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// ListLeads handles GET /api/leads
func (h *LeadHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
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
	result, err := h.service.List(r.Context(), p, query.Get("project"), query.Get("q"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetLead handles GET /api/leads/{id}
func (h *LeadHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	lead, err := h.service.Get(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, lead)
}
