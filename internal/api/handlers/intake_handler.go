package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// IntakeSyncService defines the interface for intake sync operations
type IntakeSyncService interface {
	Sync(ctx context.Context, principal *entities.Principal, project string) ([]*entities.SyncReport, error)
	Reparse(ctx context.Context, principal *entities.Principal, ids []string) (int64, error)
}

// IntakeHandler handles intake notes synchronization requests
type IntakeHandler struct {
	service IntakeSyncService
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(service IntakeSyncService) *IntakeHandler {
	return &IntakeHandler{service: service}
}

// Sync handles POST /api/intake/sync
func (h *IntakeHandler) Sync(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Project string `json:"project"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	reports, err := h.service.Sync(r.Context(), p, req.Project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var total int64
	for _, report := range reports {
		total += report.Total
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"projects": reports,
		"total":    total,
	})
}

// Reparse handles POST /api/intake/reparse
func (h *IntakeHandler) Reparse(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		AppointmentIDs []string `json:"appointment_ids"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reset, err := h.service.Reparse(r.Context(), p, req.AppointmentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]int64{"reset": reset})
}
