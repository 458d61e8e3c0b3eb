package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// memorySessions is an in-memory PortalSessionStore
type memorySessions struct {
	sessions map[string]*entities.PortalSession
	ttls     []time.Duration
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]*entities.PortalSession{}}
}

func (m *memorySessions) Create(_ context.Context, project string, ttl time.Duration) (*entities.PortalSession, error) {
	m.ttls = append(m.ttls, ttl)
	s := &entities.PortalSession{Token: "tok-" + project, ProjectName: project, ExpiresAt: time.Now().Add(ttl)}
	m.sessions[s.Token] = s
	return s, nil
}

func (m *memorySessions) Get(_ context.Context, token string) (*entities.PortalSession, error) {
	s, ok := m.sessions[token]
	if !ok {
		return nil, apperrors.NewUnauthorizedError("portal session expired or invalid")
	}
	return s, nil
}

func (m *memorySessions) Delete(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func portalProject(t *testing.T, active bool) *entities.Project {
	t.Helper()
	hash, err := auth.HashPassword("portal-pass")
	require.NoError(t, err)
	return &entities.Project{ProjectName: "acme", DisplayName: strPtr("Acme Clinic"), PortalPasswordHash: &hash, Active: active}
}

func TestPortalService_LoginAuthorizeLogout(t *testing.T) {
	projects := new(MockProjectRepository)
	projects.On("GetByName", mock.Anything, "acme").Return(portalProject(t, true), nil)
	sessions := newMemorySessions()
	audit := &recordingAudit{}
	svc := services.NewPortalService(projects, sessions, services.NewSecurityAudit(audit), 0)

	result, err := svc.Login(context.Background(), "acme", "portal-pass", "ip")
	require.NoError(t, err)
	assert.Equal(t, "tok-acme", result.SessionToken)
	assert.Equal(t, "Acme Clinic", *result.Branding.DisplayName)
	assert.Equal(t, []time.Duration{8 * time.Hour}, sessions.ttls)

	session, err := svc.Authorize(context.Background(), "acme", result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "acme", session.ProjectName)

	_, err = svc.Authorize(context.Background(), "other", result.SessionToken)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	require.NoError(t, svc.Logout(context.Background(), result.SessionToken))
	_, err = svc.Authorize(context.Background(), "acme", result.SessionToken)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	assert.Equal(t, []entities.SecurityEventType{entities.SecurityEventPortalLoginSucceeded}, audit.types())
}

func TestPortalService_Login_GenericFailures(t *testing.T) {
	projects := new(MockProjectRepository)
	projects.On("GetByName", mock.Anything, "acme").Return(portalProject(t, true), nil)
	projects.On("GetByName", mock.Anything, "closed").Return(portalProject(t, false), nil)
	projects.On("GetByName", mock.Anything, "ghost").Return(nil, apperrors.NewNotFoundError("project not found"))
	audit := &recordingAudit{}
	svc := services.NewPortalService(projects, newMemorySessions(), services.NewSecurityAudit(audit), time.Hour)

	var messages []string
	for _, tc := range []struct{ project, password string }{
		{"acme", "wrong"},
		{"closed", "portal-pass"},
		{"ghost", "portal-pass"},
	} {
		_, err := svc.Login(context.Background(), tc.project, tc.password, "ip")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
		messages = append(messages, err.Error())
	}
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[0], messages[2])
	assert.Len(t, audit.types(), 3)

	_, err := svc.Login(context.Background(), "acme", "", "ip")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
