package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	"github.com/zatekoja/intakedesk/pkg/config"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

func newAuthFixture(t *testing.T) (*services.AuthService, *MockUserRepository, *recordingAudit, *entities.User) {
	t.Helper()
	tokens, err := auth.NewTokenManager(config.AuthConfig{JWTSecret: "test-secret", Issuer: "intakedesk", TokenTTL: time.Hour})
	require.NoError(t, err)

	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	user := &entities.User{ID: "u-1", Email: "agent@example.com", PasswordHash: hash, MustChangePassword: true}

	users := new(MockUserRepository)
	audit := &recordingAudit{}
	return services.NewAuthService(users, tokens, services.NewSecurityAudit(audit)), users, audit, user
}

func TestAuthService_Login(t *testing.T) {
	svc, users, audit, user := newAuthFixture(t)
	users.On("GetByEmail", mock.Anything, "agent@example.com").Return(user, nil)
	users.On("GetAccess", mock.Anything, "u-1").Return(entities.RoleAgent, []string{"acme"}, nil)

	result, err := svc.Login(context.Background(), "  Agent@Example.com ", "correct horse", "10.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, entities.RoleAgent, result.Principal.Role)
	assert.Equal(t, []string{"acme"}, result.Principal.Projects)
	assert.True(t, result.Principal.MustChangePassword)
	assert.Equal(t, []entities.SecurityEventType{entities.SecurityEventLoginSucceeded}, audit.types())

	// the issued token resolves back to the same principal
	users.On("GetByID", mock.Anything, "u-1").Return(user, nil)
	principal, err := svc.Authenticate(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", principal.UserID)
	assert.Equal(t, entities.RoleAgent, principal.Role)
}

func TestAuthService_Login_SameErrorForUnknownEmailAndBadPassword(t *testing.T) {
	svc, users, audit, user := newAuthFixture(t)
	users.On("GetByEmail", mock.Anything, "agent@example.com").Return(user, nil)
	users.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, apperrors.NewNotFoundError("user not found"))

	_, errBadPassword := svc.Login(context.Background(), "agent@example.com", "wrong", "ip")
	_, errUnknown := svc.Login(context.Background(), "nobody@example.com", "whatever", "ip")

	require.Error(t, errBadPassword)
	require.Error(t, errUnknown)
	assert.Equal(t, errBadPassword.Error(), errUnknown.Error())
	assert.True(t, apperrors.IsType(errUnknown, apperrors.ErrorTypeUnauthorized))
	assert.Equal(t, []entities.SecurityEventType{
		entities.SecurityEventLoginFailed,
		entities.SecurityEventLoginFailed,
	}, audit.types())
	users.AssertNotCalled(t, "GetAccess", mock.Anything, mock.Anything)
}

func TestAuthService_Authenticate_RejectsGarbage(t *testing.T) {
	svc, users, _, _ := newAuthFixture(t)

	_, err := svc.Authenticate(context.Background(), "not-a-token")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, users, audit, user := newAuthFixture(t)
	principal := &entities.Principal{UserID: "u-1", Email: user.Email, Role: entities.RoleAgent, MustChangePassword: true}
	users.On("GetByID", mock.Anything, "u-1").Return(user, nil)
	users.On("UpdatePassword", mock.Anything, "u-1", mock.MatchedBy(func(hash string) bool {
		return auth.CheckPassword(hash, "a much better one") == nil
	}), false).Return(nil)

	require.NoError(t, svc.ChangePassword(context.Background(), principal, "correct horse", "a much better one", "ip"))
	users.AssertExpectations(t)
	assert.Equal(t, []entities.SecurityEventType{entities.SecurityEventPasswordChanged}, audit.types())
}

func TestAuthService_ChangePassword_Rejections(t *testing.T) {
	svc, users, _, user := newAuthFixture(t)
	principal := &entities.Principal{UserID: "u-1", Email: user.Email}
	users.On("GetByID", mock.Anything, "u-1").Return(user, nil)

	tests := []struct {
		name     string
		current  string
		next     string
		wantType apperrors.ErrorType
	}{
		{name: "too short", current: "correct horse", next: "short", wantType: apperrors.ErrorTypeValidation},
		{name: "unchanged", current: "correct horse", next: "correct horse", wantType: apperrors.ErrorTypeValidation},
		{name: "wrong current", current: "nope nope", next: "a much better one", wantType: apperrors.ErrorTypeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ChangePassword(context.Background(), principal, tt.current, tt.next, "ip")
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
		})
	}
	users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// stubLimiter returns a fixed decision or error
type stubLimiter struct {
	decision providers.RateDecision
	err      error
	keys     []string
}

func (s *stubLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (providers.RateDecision, error) {
	s.keys = append(s.keys, key)
	d := s.decision
	d.Limit = limit
	return d, s.err
}

func TestRateGuard_Check(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		audit := &recordingAudit{}
		guard := services.NewRateGuard(&stubLimiter{decision: providers.RateDecision{Allowed: true, Remaining: 4}}, services.NewSecurityAudit(audit), nil)

		d, err := guard.Check(context.Background(), "login:a@b.c:ip", 5, time.Minute, "a@b.c", "ip")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 4, d.Remaining)
		assert.Empty(t, audit.types())
	})

	t.Run("limited", func(t *testing.T) {
		audit := &recordingAudit{}
		guard := services.NewRateGuard(&stubLimiter{decision: providers.RateDecision{RetryAfter: 30 * time.Second}}, services.NewSecurityAudit(audit), nil)

		d, err := guard.Check(context.Background(), "k", 5, time.Minute, "s", "ip")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimited))
		assert.False(t, d.Allowed)
		assert.Equal(t, 30*time.Second, d.RetryAfter)
		assert.Equal(t, []entities.SecurityEventType{entities.SecurityEventRateLimited}, audit.types())
	})

	t.Run("backend failure denies", func(t *testing.T) {
		audit := &recordingAudit{}
		guard := services.NewRateGuard(&stubLimiter{err: errors.New("redis down")}, services.NewSecurityAudit(audit), nil)

		d, err := guard.Check(context.Background(), "k", 5, time.Minute, "s", "ip")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRateLimited))
		assert.False(t, d.Allowed)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, time.Minute, d.RetryAfter)
		assert.Equal(t, []entities.SecurityEventType{entities.SecurityEventRateLimitBackendError}, audit.types())
	})
}
