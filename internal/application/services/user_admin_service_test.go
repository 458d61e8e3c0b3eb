package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

type stubEmail struct {
	err      error
	to       string
	password string
}

func (s *stubEmail) SendWelcome(_ context.Context, to, _ string, tempPassword string) error {
	s.to, s.password = to, tempPassword
	return s.err
}

func TestUserAdminService_Create(t *testing.T) {
	users := new(MockUserRepository)
	projects := new(MockProjectRepository)
	email := &stubEmail{}
	svc := services.NewUserAdminService(users, projects, email)

	projects.On("List", mock.Anything, []string{"acme"}, false).
		Return([]*entities.Project{{ProjectName: "acme"}}, nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *entities.User) bool {
		return u.Email == "new@acme.com" && u.MustChangePassword && u.PasswordHash != ""
	}), entities.RoleProjectUser, []string{"acme"}).
		Run(func(args mock.Arguments) { args.Get(1).(*entities.User).ID = "u-new" }).
		Return(nil)

	created, err := svc.Create(context.Background(), adminPrincipal, entities.NewUserInput{
		Email:    " New@Acme.com ",
		FullName: "New Person",
		Role:     entities.RoleProjectUser,
		Projects: []string{"acme", "acme", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "u-new", created.User.ID)
	assert.True(t, created.EmailSent)
	assert.Equal(t, "new@acme.com", email.to)
	assert.Len(t, email.password, 14)
	assert.NoError(t, auth.CheckPassword(created.User.PasswordHash, email.password))
}

func TestUserAdminService_Create_KeepsUserWhenEmailFails(t *testing.T) {
	users := new(MockUserRepository)
	svc := services.NewUserAdminService(users, new(MockProjectRepository), &stubEmail{err: errors.New("resend down")})
	users.On("Create", mock.Anything, mock.Anything, entities.RoleAdmin, []string{}).Return(nil)

	created, err := svc.Create(context.Background(), adminPrincipal, entities.NewUserInput{Email: "boss@example.com", Role: entities.RoleAdmin})
	require.NoError(t, err)
	assert.False(t, created.EmailSent)
	assert.Contains(t, created.EmailError, "resend down")
	users.AssertExpectations(t)
}

func TestUserAdminService_Create_Rejections(t *testing.T) {
	projects := new(MockProjectRepository)
	projects.On("List", mock.Anything, []string{"ghost"}, false).Return([]*entities.Project{}, nil)

	tests := []struct {
		name      string
		principal *entities.Principal
		in        entities.NewUserInput
		wantType  apperrors.ErrorType
	}{
		{name: "not admin", principal: agentPrincipal, in: entities.NewUserInput{Email: "a@b.co", Role: entities.RoleAgent}, wantType: apperrors.ErrorTypeForbidden},
		{name: "bad email", principal: adminPrincipal, in: entities.NewUserInput{Email: "nope", Role: entities.RoleAgent}, wantType: apperrors.ErrorTypeValidation},
		{name: "bad role", principal: adminPrincipal, in: entities.NewUserInput{Email: "a@b.co", Role: "owner"}, wantType: apperrors.ErrorTypeValidation},
		{name: "agent without projects", principal: adminPrincipal, in: entities.NewUserInput{Email: "a@b.co", Role: entities.RoleAgent}, wantType: apperrors.ErrorTypeValidation},
		{name: "unknown project", principal: adminPrincipal, in: entities.NewUserInput{Email: "a@b.co", Role: entities.RoleAgent, Projects: []string{"ghost"}}, wantType: apperrors.ErrorTypeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			svc := services.NewUserAdminService(users, projects, nil)

			_, err := svc.Create(context.Background(), tt.principal, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.wantType, apperrors.TypeOf(err))
			users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUserAdminService_ReplaceProjects(t *testing.T) {
	users := new(MockUserRepository)
	projects := new(MockProjectRepository)
	svc := services.NewUserAdminService(users, projects, nil)

	users.On("GetAccess", mock.Anything, "u-1").Return(entities.RoleAgent, []string{"old"}, nil)
	projects.On("List", mock.Anything, []string{"acme", "beta"}, false).
		Return([]*entities.Project{{ProjectName: "acme"}, {ProjectName: "beta"}}, nil)
	users.On("ReplaceProjectAccess", mock.Anything, "u-1", []string{"acme", "beta"}).Return(nil)

	got, err := svc.ReplaceProjects(context.Background(), adminPrincipal, "u-1", []string{"acme", "beta", "acme"})
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "beta"}, got)
	users.AssertExpectations(t)
}
