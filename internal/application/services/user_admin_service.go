package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const tempPasswordLength = 14

// CreatedUser is returned after an admin creates an account
type CreatedUser struct {
	User       *entities.User `json:"user"`
	Role       entities.Role  `json:"role"`
	Projects   []string       `json:"projects"`
	EmailSent  bool           `json:"email_sent"`
	EmailError string         `json:"email_error,omitempty"`
}

// UserAdminService manages dashboard accounts
type UserAdminService struct {
	users    repositories.UserRepository
	projects repositories.ProjectRepository
	email    providers.EmailSender
}

// NewUserAdminService creates a new user admin service. email may be nil.
func NewUserAdminService(users repositories.UserRepository, projects repositories.ProjectRepository, email providers.EmailSender) *UserAdminService {
	return &UserAdminService{users: users, projects: projects, email: email}
}

// Create adds an account with a temporary password and emails it. The
// account is kept when the email cannot be sent.
func (s *UserAdminService) Create(ctx context.Context, principal *entities.Principal, in entities.NewUserInput) (*CreatedUser, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins may create users")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperrors.NewValidationError("a valid email is required")
	}
	role, err := entities.ParseRole(string(in.Role))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	projects, err := s.checkProjects(ctx, role, in.Projects)
	if err != nil {
		return nil, err
	}

	temp, err := auth.TempPassword(tempPasswordLength)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to generate password", err)
	}
	hash, err := auth.HashPassword(temp)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to hash password", err)
	}

	user := &entities.User{
		Email:              email,
		FullName:           strings.TrimSpace(in.FullName),
		PasswordHash:       hash,
		MustChangePassword: true,
	}
	if err := s.users.Create(ctx, user, role, projects); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", user.ID).Str("role", string(role)).Str("by", principal.Email).Msg("user created")

	out := &CreatedUser{User: user, Role: role, Projects: projects}
	if s.email == nil {
		out.EmailError = "email is not configured"
		return out, nil
	}
	if err := s.email.SendWelcome(ctx, email, user.FullName, temp); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID).Msg("welcome email failed")
		out.EmailError = err.Error()
		return out, nil
	}
	out.EmailSent = true
	return out, nil
}

// ReplaceProjects sets the full project access list of a user
func (s *UserAdminService) ReplaceProjects(ctx context.Context, principal *entities.Principal, userID string, projects []string) ([]string, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only admins may change project access")
	}
	role, _, err := s.users.GetAccess(ctx, userID)
	if err != nil {
		return nil, err
	}
	clean, err := s.checkProjects(ctx, role, projects)
	if err != nil {
		return nil, err
	}
	if err := s.users.ReplaceProjectAccess(ctx, userID, clean); err != nil {
		return nil, err
	}
	return clean, nil
}

// checkProjects dedupes names and verifies each project exists. Non-admin
// roles need at least one project.
func (s *UserAdminService) checkProjects(ctx context.Context, role entities.Role, names []string) ([]string, error) {
	seen := map[string]bool{}
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		clean = append(clean, n)
	}
	if role != entities.RoleAdmin && len(clean) == 0 {
		return nil, apperrors.NewValidationError("at least one project is required for role " + string(role))
	}
	if len(clean) == 0 {
		return clean, nil
	}

	found, err := s.projects.List(ctx, clean, false)
	if err != nil {
		return nil, err
	}
	if len(found) != len(clean) {
		known := map[string]bool{}
		for _, p := range found {
			known[p.ProjectName] = true
		}
		for _, n := range clean {
			if !known[n] {
				return nil, apperrors.NewValidationError("unknown project " + n)
			}
		}
	}
	return clean, nil
}
