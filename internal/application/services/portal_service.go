package services

import (
	"context"
	"errors"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const invalidPortalCredentials = "invalid project or password"

// PortalLoginResult is returned to a portal visitor after sign-in
type PortalLoginResult struct {
	SessionToken string            `json:"session_token"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Branding     entities.Branding `json:"branding"`
}

// PortalService authenticates project portal visitors
type PortalService struct {
	projects repositories.ProjectRepository
	sessions providers.PortalSessionStore
	audit    *SecurityAudit
	ttl      time.Duration
}

// NewPortalService creates a new portal service
func NewPortalService(projects repositories.ProjectRepository, sessions providers.PortalSessionStore, audit *SecurityAudit, ttl time.Duration) *PortalService {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &PortalService{projects: projects, sessions: sessions, audit: audit, ttl: ttl}
}

// Login checks the project's portal password and opens a session
func (s *PortalService) Login(ctx context.Context, project, password, ip string) (*PortalLoginResult, error) {
	if password == "" {
		return nil, apperrors.NewValidationError("password is required")
	}

	p, err := s.projects.GetByName(ctx, project)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if err != nil || !p.Active || p.PortalPasswordHash == nil {
		s.fail(ctx, project, ip, "unknown_or_closed_project")
		return nil, apperrors.NewUnauthorizedError(invalidPortalCredentials)
	}

	if err := auth.CheckPassword(*p.PortalPasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewInternalError("failed to verify password", err)
		}
		s.fail(ctx, project, ip, "bad_password")
		return nil, apperrors.NewUnauthorizedError(invalidPortalCredentials)
	}

	session, err := s.sessions.Create(ctx, p.ProjectName, s.ttl)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create portal session", err)
	}
	s.audit.Record(ctx, entities.SecurityEventPortalLoginSucceeded, entities.SeverityInfo, project, ip, nil)

	return &PortalLoginResult{
		SessionToken: session.Token,
		ExpiresAt:    session.ExpiresAt,
		Branding:     p.Branding(),
	}, nil
}

func (s *PortalService) fail(ctx context.Context, project, ip, reason string) {
	s.audit.Record(ctx, entities.SecurityEventPortalLoginFailed, entities.SeverityWarning, project, ip,
		map[string]interface{}{"reason": reason})
}

// Authorize checks that token is a live session for project
func (s *PortalService) Authorize(ctx context.Context, project, token string) (*entities.PortalSession, error) {
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.ProjectName != project {
		return nil, apperrors.NewForbiddenError("session does not belong to this project")
	}
	return session, nil
}

// Logout ends a session. Unknown tokens are ignored.
func (s *PortalService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}
