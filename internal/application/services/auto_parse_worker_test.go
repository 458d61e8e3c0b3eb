package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

func fillParseResult(result entities.ParseResult) func(mock.Arguments) {
	return func(args mock.Arguments) {
		*args.Get(3).(*entities.ParseResult) = result
	}
}

func TestAutoParseWorker_RunOnce(t *testing.T) {
	repo := new(MockAppointmentRepository)
	invoker := new(MockFunctionInvoker)
	bus := NewMemoryEventBus()
	worker := services.NewAutoParseWorker(repo, invoker, bus, nil, "", 10, time.Minute)

	repo.On("ClaimUnparsed", mock.Anything, 10).Return([]repositories.ParseClaim{
		{ID: "ok", ProjectName: "acme", Notes: "pt reports knee pain"},
		{ID: "invalid", ProjectName: "acme", Notes: "pain 11/10"},
		{ID: "down", ProjectName: "beta", Notes: "x"},
		{ID: "raced", ProjectName: "beta", Notes: "y"},
	}, nil)

	pain := 4
	good := entities.ParseResult{AISummary: strPtr("Knee pain, 4/10")}
	good.Pathology = &entities.ParsedPathology{PainLevel: &pain}
	bad := entities.ParseResult{}
	tooMuch := 11
	bad.Pathology = &entities.ParsedPathology{PainLevel: &tooMuch}

	matchID := func(id string) interface{} {
		return mock.MatchedBy(func(payload interface{}) bool {
			data, err := json.Marshal(payload)
			return err == nil && strings.Contains(string(data), `"appointment_id":"`+id+`"`)
		})
	}
	invoker.On("Invoke", mock.Anything, services.DefaultParseFunction, matchID("ok"), mock.Anything).Run(fillParseResult(good)).Return(nil)
	invoker.On("Invoke", mock.Anything, services.DefaultParseFunction, matchID("invalid"), mock.Anything).Run(fillParseResult(bad)).Return(nil)
	invoker.On("Invoke", mock.Anything, services.DefaultParseFunction, matchID("down"), mock.Anything).Return(errors.New("function returned 502"))
	invoker.On("Invoke", mock.Anything, services.DefaultParseFunction, matchID("raced"), mock.Anything).Run(fillParseResult(good)).Return(nil)

	repo.On("CompleteParse", mock.Anything, "ok", mock.Anything).Return(nil)
	repo.On("CompleteParse", mock.Anything, "raced", mock.Anything).Return(apperrors.NewConflictError("already parsed"))
	repo.On("FailParse", mock.Anything, "invalid", mock.MatchedBy(func(reason string) bool { return reason != "" })).Return(nil)
	repo.On("FailParse", mock.Anything, "down", "function returned 502").Return(nil)

	result, err := worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Claimed)
	assert.Equal(t, 1, result.Parsed)
	assert.Equal(t, 3, result.Failed)

	repo.AssertExpectations(t)
	// a row that lost the race is not marked failed
	repo.AssertNotCalled(t, "FailParse", mock.Anything, "raced", mock.Anything)

	events := bus.Published(providers.EventChannelAppointmentUpdates)
	require.Len(t, events, 1)
	assert.Equal(t, entities.ChangeEventParsed, events[0].EventType)
	assert.Equal(t, []string{"ok"}, events[0].AppointmentIDs)
}

func TestAutoParseWorker_RunOnce_NothingToClaim(t *testing.T) {
	repo := new(MockAppointmentRepository)
	invoker := new(MockFunctionInvoker)
	worker := services.NewAutoParseWorker(repo, invoker, nil, nil, "custom-fn", 0, 0)
	repo.On("ClaimUnparsed", mock.Anything, 20).Return([]repositories.ParseClaim{}, nil)

	result, err := worker.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Claimed)
	invoker.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAutoParseWorker_RunOnce_ClaimError(t *testing.T) {
	repo := new(MockAppointmentRepository)
	worker := services.NewAutoParseWorker(repo, new(MockFunctionInvoker), nil, nil, "", 5, 0)
	repo.On("ClaimUnparsed", mock.Anything, 5).Return(nil, errors.New("db down"))

	_, err := worker.RunOnce(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestAutoParseWorker_RunOnce_NoInvoker(t *testing.T) {
	repo := new(MockAppointmentRepository)
	worker := services.NewAutoParseWorker(repo, nil, nil, nil, "", 5, 0)

	_, err := worker.RunOnce(context.Background())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	repo.AssertNotCalled(t, "ClaimUnparsed", mock.Anything, mock.Anything)
}

func TestAutoParseWorker_Run_StopsOnCancel(t *testing.T) {
	repo := new(MockAppointmentRepository)
	worker := services.NewAutoParseWorker(repo, new(MockFunctionInvoker), nil, nil, "", 5, time.Hour)
	claimed := make(chan struct{}, 1)
	repo.On("ClaimUnparsed", mock.Anything, 5).Run(func(mock.Arguments) {
		select {
		case claimed <- struct{}{}:
		default:
		}
	}).Return([]repositories.ParseClaim{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	select {
	case <-claimed:
	case <-time.After(time.Second):
		t.Fatal("worker did not run its first pass")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
