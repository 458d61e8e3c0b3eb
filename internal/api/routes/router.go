package routes

import (
	"net/http"

	"github.com/zatekoja/intakedesk/internal/api/handlers"
	"github.com/zatekoja/intakedesk/internal/api/middleware"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
)

// Handlers groups every route handler the router mounts
type Handlers struct {
	Health       *handlers.HealthHandler
	Auth         *handlers.AuthHandler
	Appointments *handlers.AppointmentHandler
	Notes        *handlers.NoteHandler
	Imports      *handlers.ImportHandler
	Intake       *handlers.IntakeHandler
	Projects     *handlers.ProjectHandler
	Portal       *handlers.PortalHandler
	Notify       *handlers.NotificationHandler
	Leads        *handlers.LeadHandler
	Admin        *handlers.AdminHandler
	Stream       *handlers.StreamHandler
}

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	handlers       Handlers
	authenticator  middleware.Authenticator
	portalAuth     middleware.PortalAuthorizer
	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	h Handlers,
	authenticator middleware.Authenticator,
	portalAuth middleware.PortalAuthorizer,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		handlers:       h,
		authenticator:  authenticator,
		portalAuth:     portalAuth,
		allowedOrigins: allowedOrigins,
		metrics:        metrics,
	}
}

// signedIn requires a session and, when roles are given, one of them
func (r *Router) signedIn(h http.HandlerFunc, roles ...entities.Role) http.Handler {
	return middleware.SessionGuard(r.authenticator)(middleware.RoleGuard(roles...)(h))
}

// byID rejects malformed record ids in the named path values with 404
func byID(h http.HandlerFunc, names ...string) http.HandlerFunc {
	if len(names) == 0 {
		names = []string{"id"}
	}
	return middleware.UUIDPath(names...)(h).ServeHTTP
}

func (r *Router) portal(h http.HandlerFunc) http.Handler {
	return middleware.PortalGuard(r.portalAuth)(h)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	h := r.handlers
	admin := entities.RoleAdmin
	staff := []entities.Role{entities.RoleAdmin, entities.RoleAgent}

	// Health check endpoint
	r.mux.HandleFunc("GET /health", h.Health.Health)

	// Session endpoints
	r.mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	r.mux.Handle("GET /api/auth/me", r.signedIn(h.Auth.Me))
	r.mux.Handle("POST /api/auth/change-password", r.signedIn(h.Auth.ChangePassword))

	// Appointment endpoints
	r.mux.Handle("GET /api/appointments", r.signedIn(h.Appointments.ListAppointments))
	r.mux.Handle("GET /api/appointments/counts", r.signedIn(h.Appointments.CountAppointments))
	r.mux.Handle("GET /api/appointments/search", r.signedIn(h.Appointments.SearchAppointments))
	r.mux.Handle("GET /api/appointments/{id}", r.signedIn(byID(h.Appointments.GetAppointment)))
	r.mux.Handle("PATCH /api/appointments/{id}", r.signedIn(byID(h.Appointments.PatchAppointment)))
	r.mux.Handle("POST /api/appointments/{id}/color/cycle", r.signedIn(byID(h.Appointments.CycleColor)))
	r.mux.Handle("PUT /api/appointments/{id}/color", r.signedIn(byID(h.Appointments.SetColor)))
	r.mux.Handle("POST /api/appointments/{id}/dnd", r.signedIn(byID(h.Appointments.SetDND), staff...))

	// Note endpoints
	r.mux.Handle("GET /api/appointments/{id}/notes", r.signedIn(byID(h.Notes.ListNotes)))
	r.mux.Handle("POST /api/appointments/{id}/notes", r.signedIn(byID(h.Notes.AddNote)))
	r.mux.Handle("DELETE /api/appointments/{id}/notes/{noteId}", r.signedIn(byID(h.Notes.DeleteNote, "id", "noteId"), admin))

	// Import endpoints
	r.mux.Handle("POST /api/imports/{type}", r.signedIn(h.Imports.Import, staff...))
	r.mux.Handle("GET /api/imports/last", r.signedIn(h.Imports.LastImport, staff...))
	r.mux.Handle("POST /api/imports/{id}/undo", r.signedIn(byID(h.Imports.Undo), staff...))

	// Intake endpoints
	r.mux.Handle("POST /api/intake/sync", r.signedIn(h.Intake.Sync, staff...))
	r.mux.Handle("POST /api/intake/reparse", r.signedIn(h.Intake.Reparse, staff...))

	// Project endpoints
	r.mux.Handle("GET /api/projects", r.signedIn(h.Projects.ListProjects))
	r.mux.Handle("POST /api/projects", r.signedIn(h.Projects.CreateProject, admin))
	r.mux.Handle("GET /api/projects/{name}", r.signedIn(h.Projects.GetProject))
	r.mux.Handle("PUT /api/projects/{name}/portal-password", r.signedIn(h.Projects.SetPortalPassword, admin))
	r.mux.Handle("GET /api/projects/{name}/ghl/calendars", r.signedIn(h.Projects.Calendars, staff...))
	r.mux.Handle("POST /api/projects/{name}/ghl/sync-timezone", r.signedIn(h.Projects.SyncTimezone, admin))
	r.mux.Handle("GET /api/projects/{name}/messages", r.signedIn(h.Notify.ListMessages))
	r.mux.Handle("POST /api/projects/{name}/messages", r.signedIn(h.Notify.PostMessage))

	// Support
	r.mux.Handle("POST /api/support", r.signedIn(h.Notify.Support))

	// Portal endpoints
	r.mux.HandleFunc("POST /api/portal/{project}/login", h.Portal.Login)
	r.mux.Handle("GET /api/portal/{project}/appointments", r.portal(h.Portal.ListAppointments))
	r.mux.Handle("GET /api/portal/{project}/counts", r.portal(h.Portal.Counts))
	r.mux.Handle("POST /api/portal/{project}/logout", r.portal(h.Portal.Logout))

	// Lead endpoints
	r.mux.Handle("GET /api/leads", r.signedIn(h.Leads.ListLeads))
	r.mux.Handle("GET /api/leads/{id}", r.signedIn(byID(h.Leads.GetLead)))

	// Live updates
	r.mux.Handle("GET /api/stream/appointments", r.signedIn(h.Stream.StreamAppointments))

	// Admin endpoints
	r.mux.Handle("POST /api/admin/users", r.signedIn(h.Admin.CreateUser, admin))
	r.mux.Handle("PUT /api/admin/users/{id}/projects", r.signedIn(byID(h.Admin.ReplaceUserProjects), admin))
	r.mux.Handle("POST /api/admin/functions/{name}", r.signedIn(h.Admin.InvokeFunction, admin))
	r.mux.Handle("POST /api/admin/auto-parse/run", r.signedIn(h.Admin.RunAutoParse, admin))
	r.mux.Handle("GET /api/admin/analytics/projects", r.signedIn(h.Admin.ProjectAnalytics, admin))
	r.mux.Handle("GET /api/admin/streams", r.signedIn(h.Stream.Stats, admin))

	// Apply middleware in reverse order (last middleware wraps first).
	// Observability sits directly on the mux so it sees the matched pattern.
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.NoStore(handler)
	handler = middleware.Compression(handler)
	handler = middleware.LoggingMiddleware(handler)

	// CORS wraps everything so headers are set on early errors too
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
