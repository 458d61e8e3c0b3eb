package services

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const reindexBatchSize = 500

// SearchIndexService keeps the appointment search index in step with Postgres
type SearchIndexService struct {
	repo   repositories.AppointmentRepository
	search providers.SearchProvider
}

// NewSearchIndexService creates a new search index service
func NewSearchIndexService(repo repositories.AppointmentRepository, search providers.SearchProvider) *SearchIndexService {
	return &SearchIndexService{repo: repo, search: search}
}

// Reindex walks every appointment by id and upserts it. It returns the
// number of documents written.
func (s *SearchIndexService) Reindex(ctx context.Context) (int, error) {
	logger := observability.Component("indexer")
	total := 0
	afterID := ""
	for {
		batch, err := s.repo.ListAfter(ctx, afterID, reindexBatchSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			break
		}
		if err := s.search.Index(ctx, batch...); err != nil {
			return total, fmt.Errorf("index batch after %q: %w", afterID, err)
		}
		total += len(batch)
		afterID = batch[len(batch)-1].ID
		logger.Debug().Int("indexed", total).Msg("reindex progress")
		if len(batch) < reindexBatchSize {
			break
		}
	}
	logger.Info().Int("indexed", total).Msg("reindex finished")
	return total, nil
}

// Apply updates the index for one change event. Project-wide events
// without ids are ignored; the periodic reindex covers them.
func (s *SearchIndexService) Apply(ctx context.Context, event *entities.ChangeEvent) error {
	if event == nil || len(event.AppointmentIDs) == 0 {
		return nil
	}
	if event.EventType == entities.ChangeEventDeleted {
		return s.search.Delete(ctx, event.AppointmentIDs...)
	}

	docs := make([]*entities.Appointment, 0, len(event.AppointmentIDs))
	var gone []string
	for _, id := range event.AppointmentIDs {
		a, err := s.repo.GetByID(ctx, id)
		if apperrors.IsNotFound(err) {
			gone = append(gone, id)
			continue
		}
		if err != nil {
			return err
		}
		docs = append(docs, a)
	}
	if len(docs) > 0 {
		if err := s.search.Index(ctx, docs...); err != nil {
			return err
		}
	}
	if len(gone) > 0 {
		return s.search.Delete(ctx, gone...)
	}
	return nil
}

// Follow applies appointment change events until ctx is cancelled
func (s *SearchIndexService) Follow(ctx context.Context, bus providers.EventBus) error {
	events, err := bus.Subscribe(ctx, providers.EventChannelAppointmentUpdates)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	logger := observability.Component("indexer")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			applyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			if err := s.Apply(applyCtx, event); err != nil {
				logger.Warn().Err(err).Str("event_id", event.ID).Msg("index update failed")
			}
			cancel()
		}
	}
}
