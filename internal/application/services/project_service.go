package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

var projectNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{1,62}$`)

// NewProjectInput is what an admin supplies to create a tenant
type NewProjectInput struct {
	ProjectName    string  `json:"project_name"`
	DisplayName    *string `json:"display_name,omitempty"`
	LogoURL        *string `json:"logo_url,omitempty"`
	PrimaryColor   *string `json:"primary_color,omitempty"`
	PortalPassword string  `json:"portal_password,omitempty"`
	GHLLocationID  *string `json:"ghl_location_id,omitempty"`
	Timezone       *string `json:"timezone,omitempty"`
}

// ProjectService manages tenants and their CRM settings
type ProjectService struct {
	repo repositories.ProjectRepository
	crm  providers.AppointmentProvider
}

// NewProjectService creates a new project service. crm may be nil.
func NewProjectService(repo repositories.ProjectRepository, crm providers.AppointmentProvider) *ProjectService {
	return &ProjectService{repo: repo, crm: crm}
}

// List returns the projects the principal may see
func (s *ProjectService) List(ctx context.Context, principal *entities.Principal) ([]*entities.Project, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if principal.IsAdmin() {
		return s.repo.List(ctx, nil, false)
	}
	names := principal.Projects
	if names == nil {
		names = []string{}
	}
	return s.repo.List(ctx, names, false)
}

// ListActive returns every active project. Used by analytics.
func (s *ProjectService) ListActive(ctx context.Context) ([]*entities.Project, error) {
	return s.repo.List(ctx, nil, true)
}

// Get returns one project the principal may see
func (s *ProjectService) Get(ctx context.Context, principal *entities.Principal, name string) (*entities.Project, error) {
	if err := requireAccess(principal, name); err != nil {
		return nil, err
	}
	return s.repo.GetByName(ctx, name)
}

// Create registers a tenant. The portal password is stored hashed.
func (s *ProjectService) Create(ctx context.Context, principal *entities.Principal, in NewProjectInput) (*entities.Project, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins may create projects")
	}
	name := strings.TrimSpace(in.ProjectName)
	if !projectNamePattern.MatchString(name) {
		return nil, apperrors.NewValidationError("project_name must be 2-63 lowercase letters, digits, '-' or '_'")
	}
	if in.Timezone != nil && *in.Timezone != "" {
		if _, err := time.LoadLocation(*in.Timezone); err != nil {
			return nil, apperrors.NewValidationError("unknown timezone " + *in.Timezone)
		}
	}

	p := &entities.Project{
		ProjectName:   name,
		DisplayName:   in.DisplayName,
		LogoURL:       in.LogoURL,
		PrimaryColor:  in.PrimaryColor,
		GHLLocationID: in.GHLLocationID,
		Timezone:      in.Timezone,
		Active:        true,
	}
	if in.PortalPassword != "" {
		if err := auth.ValidateNewPassword(in.PortalPassword); err != nil {
			return nil, apperrors.NewValidationError(err.Error())
		}
		hash, err := auth.HashPassword(in.PortalPassword)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to hash password", err)
		}
		p.PortalPasswordHash = &hash
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("project", name).Str("by", principal.Email).Msg("project created")
	return p, nil
}

// SetPortalPassword replaces a project's portal password
func (s *ProjectService) SetPortalPassword(ctx context.Context, principal *entities.Principal, name, password string) error {
	if !principal.IsAdmin() {
		return apperrors.NewForbiddenError("only admins may change portal passwords")
	}
	if err := auth.ValidateNewPassword(password); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	return s.repo.UpdatePortalPassword(ctx, name, hash)
}

func (s *ProjectService) crmLocation(ctx context.Context, principal *entities.Principal, name string) (string, error) {
	p, err := s.Get(ctx, principal, name)
	if err != nil {
		return "", err
	}
	if s.crm == nil {
		return "", apperrors.NewExternalError("GHL not configured", nil)
	}
	if p.GHLLocationID == nil || *p.GHLLocationID == "" {
		return "", apperrors.NewValidationError("project has no GHL location")
	}
	return *p.GHLLocationID, nil
}

// Calendars lists the CRM calendars of a project's location
func (s *ProjectService) Calendars(ctx context.Context, principal *entities.Principal, name string) ([]providers.Calendar, error) {
	location, err := s.crmLocation(ctx, principal, name)
	if err != nil {
		return nil, err
	}
	calendars, err := s.crm.GetCalendars(ctx, location)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to load GHL calendars", err)
	}
	return calendars, nil
}

// SyncTimezone copies the CRM location timezone onto the project
func (s *ProjectService) SyncTimezone(ctx context.Context, principal *entities.Principal, name string) (string, error) {
	location, err := s.crmLocation(ctx, principal, name)
	if err != nil {
		return "", err
	}
	tz, err := s.crm.GetLocationTimezone(ctx, location)
	if err != nil {
		return "", apperrors.NewExternalError("failed to load GHL timezone", err)
	}
	if err := s.repo.UpdateTimezone(ctx, name, tz); err != nil {
		return "", err
	}
	log.Info().Str("project", name).Str("timezone", tz).Msg("project timezone synced")
	return tz, nil
}
