package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
)

// CacheInvalidationService drops cached tab counts when appointments change
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	updates, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelAppointmentUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to appointment updates: %w", err)
	}
	imports, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelImports)
	if err != nil {
		return fmt.Errorf("failed to subscribe to import updates: %w", err)
	}

	go s.processEvents(updates, imports)
	log.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	<-s.done
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(updates, imports <-chan *entities.ChangeEvent) {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			s.handleEvent(event)
		case event, ok := <-imports:
			if !ok {
				imports = nil
				continue
			}
			s.handleEvent(event)
		}
	}
}

// handleEvent drops all cached tab counts. Counts are keyed by project set,
// so one project's change can affect many keys; they rebuild within a request.
func (s *CacheInvalidationService) handleEvent(event *entities.ChangeEvent) {
	if event == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.cache.DeletePattern(ctx, tabCountsCachePrefix+"*"); err != nil {
		log.Warn().Err(err).
			Str("event_id", event.ID).
			Str("project", event.ProjectName).
			Msg("failed to invalidate tab counts")
		return
	}
	log.Debug().
		Str("event_id", event.ID).
		Str("project", event.ProjectName).
		Str("event_type", string(event.EventType)).
		Msg("tab counts invalidated")
}
