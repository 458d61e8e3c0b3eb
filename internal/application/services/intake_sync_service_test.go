package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

type MockIntakeSyncRepository struct {
	mock.Mock
}

func (m *MockIntakeSyncRepository) Sync(ctx context.Context, project string) ([]entities.SyncStrategyResult, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.SyncStrategyResult), args.Error(1)
}

func TestIntakeSyncService_Sync_AdminAllProjects(t *testing.T) {
	repo := new(MockIntakeSyncRepository)
	bus := NewMemoryEventBus()
	svc := services.NewIntakeSyncService(repo, nil, bus)

	repo.On("Sync", mock.Anything, "").Return([]entities.SyncStrategyResult{
		{Strategy: entities.SyncByCRMID, Updated: 3},
		{Strategy: entities.SyncByPhone, Updated: 2},
	}, nil)

	reports, err := svc.Sync(context.Background(), adminPrincipal, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.EqualValues(t, 5, reports[0].Total)
	assert.Len(t, bus.Published(providers.EventChannelAppointmentUpdates), 1)
}

func TestIntakeSyncService_Sync_AgentPerProject(t *testing.T) {
	repo := new(MockIntakeSyncRepository)
	bus := NewMemoryEventBus()
	svc := services.NewIntakeSyncService(repo, nil, bus)
	agent := &entities.Principal{UserID: "u", Role: entities.RoleAgent, Projects: []string{"acme", "beta"}}

	repo.On("Sync", mock.Anything, "acme").Return([]entities.SyncStrategyResult{{Strategy: entities.SyncByExactName, Updated: 1}}, nil)
	repo.On("Sync", mock.Anything, "beta").Return([]entities.SyncStrategyResult{{Strategy: entities.SyncByExactName}}, nil)

	reports, err := svc.Sync(context.Background(), agent, "")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "acme", reports[0].Project)
	assert.Equal(t, "beta", reports[1].Project)
	// nothing changed in beta, so only acme is announced
	events := bus.Published(providers.EventChannelAppointmentUpdates)
	require.Len(t, events, 1)
	assert.Equal(t, entities.ChangeEventSynced, events[0].EventType)
	repo.AssertNotCalled(t, "Sync", mock.Anything, "")
}

func TestIntakeSyncService_Sync_ProjectUserForbidden(t *testing.T) {
	repo := new(MockIntakeSyncRepository)
	_, err := services.NewIntakeSyncService(repo, nil, nil).Sync(context.Background(), clientUser, "acme")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
}

func TestIntakeSyncService_Reparse(t *testing.T) {
	appointments := new(MockAppointmentRepository)
	svc := services.NewIntakeSyncService(nil, appointments, nil)

	appointments.On("ResetParsing", mock.Anything, []string{"a1", "a2"}, []string{"acme"}).Return(int64(1), nil)

	n, err := svc.Reparse(context.Background(), agentPrincipal, []string{"a1", "a2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = svc.Reparse(context.Background(), agentPrincipal, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.Reparse(context.Background(), agentPrincipal, make([]string, services.MaxReparseIDs+1))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.Reparse(context.Background(), clientUser, []string{"a1"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
}
