package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

// NotificationService defines the interface for support and team messages
type NotificationService interface {
	Support(ctx context.Context, principal *entities.Principal, req services.SupportRequest) ([]providers.ChannelResult, error)
	PostMessage(ctx context.Context, principal *entities.Principal, project, text string) (*entities.ProjectMessage, []providers.ChannelResult, error)
	ListMessages(ctx context.Context, principal *entities.Principal, project string, limit int) ([]*entities.ProjectMessage, error)
}

// NotificationHandler handles support requests and project messages
type NotificationHandler struct {
	service NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// Support handles POST /api/support
func (h *NotificationHandler) Support(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req services.SupportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.service.Support(r.Context(), p, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// PostMessage handles POST /api/projects/{name}/messages
func (h *NotificationHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, results, err := h.service.PostMessage(r.Context(), p, r.PathValue("name"), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message": msg,
		"results": results,
	})
}

// ListMessages handles GET /api/projects/{name}/messages
func (h *NotificationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	messages, err := h.service.ListMessages(r.Context(), p, r.PathValue("name"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if messages == nil {
		messages = []*entities.ProjectMessage{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": messages})
}
