package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const invalidCredentials = "invalid email or password"

// TokenIssuer signs and verifies dashboard session tokens
type TokenIssuer interface {
	Issue(user *entities.User, role entities.Role) (string, time.Time, error)
	Verify(token string) (*auth.Claims, error)
}

// LoginResult is returned after a successful sign-in
type LoginResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Principal *entities.Principal `json:"principal"`
}

// AuthService signs dashboard users in and resolves principals
type AuthService struct {
	users  repositories.UserRepository
	tokens TokenIssuer
	audit  *SecurityAudit
}

// NewAuthService creates a new auth service
func NewAuthService(users repositories.UserRepository, tokens TokenIssuer, audit *SecurityAudit) *AuthService {
	return &AuthService{users: users, tokens: tokens, audit: audit}
}

// Login verifies credentials and issues a session token. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if apperrors.IsNotFound(err) {
		s.audit.Record(ctx, entities.SecurityEventLoginFailed, entities.SeverityWarning, email, ip,
			map[string]interface{}{"reason": "unknown_email"})
		return nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewInternalError("failed to verify password", err)
		}
		s.audit.Record(ctx, entities.SecurityEventLoginFailed, entities.SeverityWarning, email, ip,
			map[string]interface{}{"reason": "bad_password"})
		return nil, apperrors.NewUnauthorizedError(invalidCredentials)
	}

	principal, err := s.principalFor(ctx, user)
	if err != nil {
		return nil, err
	}
	token, expires, err := s.tokens.Issue(user, principal.Role)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}

	s.audit.Record(ctx, entities.SecurityEventLoginSucceeded, entities.SeverityInfo, email, ip, nil)
	return &LoginResult{Token: token, ExpiresAt: expires, Principal: principal}, nil
}

// Authenticate verifies a bearer token and loads the caller's current role
// and project access from the database
func (s *AuthService) Authenticate(ctx context.Context, token string) (*entities.Principal, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, apperrors.NewUnauthorizedError("invalid or expired session")
	}
	user, err := s.users.GetByID(ctx, claims.Subject)
	if apperrors.IsNotFound(err) {
		return nil, apperrors.NewUnauthorizedError("account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	return s.principalFor(ctx, user)
}

func (s *AuthService) principalFor(ctx context.Context, user *entities.User) (*entities.Principal, error) {
	role, projects, err := s.users.GetAccess(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []string{}
	}
	return &entities.Principal{
		UserID:             user.ID,
		Email:              user.Email,
		Role:               role,
		Projects:           projects,
		MustChangePassword: user.MustChangePassword,
	}, nil
}

// ChangePassword replaces the caller's password and clears the forced-change flag
func (s *AuthService) ChangePassword(ctx context.Context, principal *entities.Principal, current, next, ip string) error {
	if principal == nil {
		return apperrors.NewUnauthorizedError("authentication required")
	}
	if err := auth.ValidateNewPassword(next); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if current == next {
		return apperrors.NewValidationError("new password must differ from the current one")
	}

	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return apperrors.NewUnauthorizedError("current password is incorrect")
		}
		return apperrors.NewInternalError("failed to verify password", err)
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return apperrors.NewInternalError("failed to hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		return err
	}

	s.audit.Record(ctx, entities.SecurityEventPasswordChanged, entities.SeverityInfo, user.Email, ip, nil)
	return nil
}
