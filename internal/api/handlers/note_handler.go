package handlers

import (
	"context"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// NoteService defines the interface for appointment note operations
type NoteService interface {
	ListNotes(ctx context.Context, principal *entities.Principal, appointmentID string) ([]*entities.AppointmentNote, error)
	AddNote(ctx context.Context, principal *entities.Principal, appointmentID, text string) (*entities.AppointmentNote, error)
	DeleteNote(ctx context.Context, principal *entities.Principal, appointmentID, noteID string) error
}

// NoteHandler handles appointment note requests
type NoteHandler struct {
	service NoteService
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(service NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

// ListNotes handles GET /api/appointments/{id}/notes
func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notes, err := h.service.ListNotes(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if notes == nil {
		notes = []*entities.AppointmentNote{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"data": notes})
}

// AddNote handles POST /api/appointments/{id}/notes
func (h *NoteHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		NoteText string `json:"note_text"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	note, err := h.service.AddNote(r.Context(), p, r.PathValue("id"), req.NoteText)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, note)
}

// DeleteNote handles DELETE /api/appointments/{id}/notes/{noteId}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.service.DeleteNote(r.Context(), p, r.PathValue("id"), r.PathValue("noteId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
