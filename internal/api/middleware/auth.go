package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

type principalKey struct{}

// Authenticator resolves a bearer token to a principal with its current
// role and project access
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entities.Principal, error)
}

// passwordChangeExempt are the only routes open while a password change is pending
var passwordChangeExempt = map[string]bool{
	"POST /api/auth/change-password": true,
	"GET /api/auth/me":               true,
}

// WithPrincipal stores p in ctx
func WithPrincipal(ctx context.Context, p *entities.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal set by SessionGuard, or nil
func PrincipalFrom(ctx context.Context) *entities.Principal {
	p, _ := ctx.Value(principalKey{}).(*entities.Principal)
	return p
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SessionGuard requires a valid bearer token. Unauthenticated requests get
// 401 with a redirect to the sign-in page.
func SessionGuard(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteError(w, r, apperrors.NewUnauthorizedError("authentication required"))
				return
			}
			principal, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RoleGuard admits principals holding one of roles. No roles means any
// signed-in user. While a password change is pending only the change
// password and me routes are reachable.
func RoleGuard(roles ...entities.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFrom(r.Context())
			if principal == nil {
				WriteError(w, r, apperrors.NewUnauthorizedError("authentication required"))
				return
			}
			if principal.MustChangePassword && !passwordChangeExempt[r.Method+" "+r.URL.Path] {
				WriteError(w, r, apperrors.NewPasswordChangeRequiredError())
				return
			}
			if len(roles) > 0 && !principal.HasRole(roles...) {
				WriteError(w, r, apperrors.NewForbiddenError("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
