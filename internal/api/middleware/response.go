package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const (
	authRedirect           = "/auth"
	changePasswordRedirect = "/change-password"
)

// ErrorBody is the JSON shape of every error response
type ErrorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Redirect string `json:"redirect,omitempty"`
}

// WriteJSON encodes payload with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// StatusFor maps an error to its HTTP status
func StatusFor(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeForbidden, apperrors.ErrorTypePasswordChangeRequired:
		return http.StatusForbidden
	case apperrors.ErrorTypeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// WriteError writes err as an ErrorBody. Internal causes are logged, never sent.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	body := ErrorBody{Error: err.Error(), Code: string(apperrors.ErrorTypeInternal)}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.Code = string(appErr.Type)
	}
	switch status {
	case http.StatusUnauthorized:
		body.Redirect = authRedirect
	case http.StatusForbidden:
		if body.Code == string(apperrors.ErrorTypePasswordChangeRequired) {
			body.Redirect = changePasswordRedirect
		}
	case http.StatusInternalServerError:
		body.Error = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	WriteJSON(w, status, body)
}
