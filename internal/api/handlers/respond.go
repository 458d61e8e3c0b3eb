package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/intakedesk/internal/api/middleware"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// maxJSONBody bounds every JSON request body
const maxJSONBody = 1 << 20

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	middleware.WriteJSON(w, statusCode, payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.WriteError(w, r, err)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required")
		}
		return apperrors.NewValidationError("invalid request payload")
	}
	return nil
}

// principal returns the caller set by the session guard
func principal(r *http.Request) (*entities.Principal, error) {
	p := middleware.PrincipalFrom(r.Context())
	if p == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	return p, nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(key + " must be an integer")
	}
	return n, nil
}

// queryTab parses the optional tab parameter. Empty means every row.
func queryTab(r *http.Request) (*entities.Tab, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("tab"))
	if raw == "" || raw == "all" {
		return nil, nil
	}
	tab, err := entities.ParseTab(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	return tab, nil
}
