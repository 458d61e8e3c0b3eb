package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

func TestCacheInvalidationService_DropsTabCountsOnEvents(t *testing.T) {
	cache := NewMemoryCache()
	bus := NewMemoryEventBus()
	svc := services.NewCacheInvalidationService(cache, bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "tabcounts:dash:acme:2025-03-10", []byte(`{}`), 60))
	require.NoError(t, cache.Set(ctx, "session:keep", []byte(`x`), 60))

	require.NoError(t, bus.Publish(ctx, providers.EventChannelImports, entities.NewChangeEvent("acme", entities.ChangeEventImported, "r1")))

	assert.Eventually(t, func() bool {
		ok, _ := cache.Exists(ctx, "tabcounts:dash:acme:2025-03-10")
		return !ok
	}, time.Second, 10*time.Millisecond)

	kept, _ := cache.Exists(ctx, "session:keep")
	assert.True(t, kept)

	require.NoError(t, cache.Set(ctx, "tabcounts:portal:acme:2025-03-10", []byte(`{}`), 60))
	require.NoError(t, bus.Publish(ctx, providers.EventChannelAppointmentUpdates, entities.NewChangeEvent("acme", entities.ChangeEventUpdated, "a1")))

	assert.Eventually(t, func() bool {
		ok, _ := cache.Exists(ctx, "tabcounts:portal:acme:2025-03-10")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
