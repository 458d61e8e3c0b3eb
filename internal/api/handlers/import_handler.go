package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// maxUploadBytes bounds a CSV upload
const maxUploadBytes = 20 << 20

// ImportService defines the interface for CSV import operations
type ImportService interface {
	Import(ctx context.Context, principal *entities.Principal, importType entities.ImportType, project, fileName string, r io.Reader) (*entities.ImportResult, error)
	FindLast(ctx context.Context, principal *entities.Principal, importType entities.ImportType, project string) (*entities.CSVImport, error)
	Undo(ctx context.Context, principal *entities.Principal, importID string) (*entities.UndoResult, error)
}

// ImportHandler handles CSV import and undo requests
type ImportHandler struct {
	service ImportService
}

// NewImportHandler creates a new import handler
func NewImportHandler(service ImportService) *ImportHandler {
	return &ImportHandler{service: service}
}

// Import handles POST /api/imports/{type}
func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	importType, err := entities.ParseImportType(r.PathValue("type"))
	if err != nil {
		writeError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, apperrors.NewValidationError("upload exceeds 20MB"))
			return
		}
		writeError(w, r, apperrors.NewValidationError("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	result, err := h.service.Import(r.Context(), p, importType, r.URL.Query().Get("project"), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, result)
}

// LastImport handles GET /api/imports/last
func (h *ImportHandler) LastImport(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	query := r.URL.Query()
	importType, err := entities.ParseImportType(query.Get("type"))
	if err != nil {
		writeError(w, r, apperrors.NewValidationError(err.Error()))
		return
	}
	imp, err := h.service.FindLast(r.Context(), p, importType, query.Get("project"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, imp)
}

// Undo handles POST /api/imports/{id}/undo
func (h *ImportHandler) Undo(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.service.Undo(r.Context(), p, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
