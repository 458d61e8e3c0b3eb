package middleware

import (
	"net/http"

	"github.com/google/uuid"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// UUIDPath answers 404 when any of the named path values is not a UUID.
// Every table keys rows by UUID, so such an id cannot match a row.
func UUIDPath(names ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, name := range names {
				if id := r.PathValue(name); uuid.Validate(id) != nil {
					WriteError(w, r, apperrors.NewNotFoundError("no record with id "+id))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
