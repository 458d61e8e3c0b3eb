package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

// MaxReparseIDs bounds one reparse request
const MaxReparseIDs = 500

// IntakeSyncService copies lead intake data onto appointments and resets
// parsing state
type IntakeSyncService struct {
	sync         repositories.IntakeSyncRepository
	appointments repositories.AppointmentRepository
	events       providers.EventBus
}

// NewIntakeSyncService creates a new intake sync service
func NewIntakeSyncService(sync repositories.IntakeSyncRepository, appointments repositories.AppointmentRepository, events providers.EventBus) *IntakeSyncService {
	return &IntakeSyncService{sync: sync, appointments: appointments, events: events}
}

// Sync fills empty appointment intake fields from matching leads. An admin
// without a project syncs everything; other roles sync each of their projects.
func (s *IntakeSyncService) Sync(ctx context.Context, principal *entities.Principal, project string) ([]*entities.SyncReport, error) {
	if !principal.HasRole(entities.RoleAdmin, entities.RoleAgent) {
		return nil, apperrors.NewForbiddenError("intake sync requires admin or agent")
	}
	projects, err := scope(principal, project)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		projects = []string{""}
	}

	reports := make([]*entities.SyncReport, 0, len(projects))
	for _, p := range projects {
		results, err := s.sync.Sync(ctx, p)
		if err != nil {
			return nil, err
		}
		report := &entities.SyncReport{Project: p, Strategies: results}
		for _, r := range results {
			report.Total += r.Updated
		}
		reports = append(reports, report)

		log.Info().Str("project", p).Int64("updated", report.Total).Msg("intake sync finished")
		if report.Total > 0 {
			publish(ctx, s.events, providers.EventChannelAppointmentUpdates,
				entities.NewChangeEvent(p, entities.ChangeEventSynced))
		}
	}
	return reports, nil
}

// Reparse clears parsing state of the given appointments so the auto-parse
// worker claims them again. Rows outside the principal's projects are untouched.
func (s *IntakeSyncService) Reparse(ctx context.Context, principal *entities.Principal, ids []string) (int64, error) {
	if !principal.HasRole(entities.RoleAdmin, entities.RoleAgent) {
		return 0, apperrors.NewForbiddenError("reparse requires admin or agent")
	}
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("appointment_ids is required")
	}
	if len(ids) > MaxReparseIDs {
		return 0, apperrors.NewValidationError("too many appointment ids")
	}
	projects, err := scope(principal, "")
	if err != nil {
		return 0, err
	}

	n, err := s.appointments.ResetParsing(ctx, ids, projects)
	if err != nil {
		return 0, err
	}
	log.Info().Int("requested", len(ids)).Int64("reset", n).Str("by", principal.Email).Msg("appointments queued for reparse")
	return n, nil
}
