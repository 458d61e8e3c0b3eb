package middleware

import (
	"context"
	"net/http"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// PortalSessionHeader carries the opaque portal session token
const PortalSessionHeader = "X-Portal-Session"

type portalSessionKey struct{}

// PortalAuthorizer checks a portal session against a project
type PortalAuthorizer interface {
	Authorize(ctx context.Context, project, token string) (*entities.PortalSession, error)
}

// PortalSessionFrom returns the session set by PortalGuard, or nil
func PortalSessionFrom(ctx context.Context) *entities.PortalSession {
	s, _ := ctx.Value(portalSessionKey{}).(*entities.PortalSession)
	return s
}

// PortalGuard requires a live session for the {project} path value
func PortalGuard(auth PortalAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(PortalSessionHeader)
			if token == "" {
				WriteError(w, r, apperrors.NewUnauthorizedError("portal session required"))
				return
			}
			session, err := auth.Authorize(r.Context(), r.PathValue("project"), token)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), portalSessionKey{}, session)))
		})
	}
}
