package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Page is one page of a list response
type Page[T any] struct {
	Data     []T `json:"data"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// normalizePage clamps page and size and returns limit and offset
func normalizePage(page, size int) (int, int, int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size, size, (page - 1) * size
}

// publish sends an event and logs a failure. Events are notifications;
// a lost one never fails the write that caused it.
func publish(ctx context.Context, bus providers.EventBus, channel string, event *entities.ChangeEvent) {
	if bus == nil || event == nil {
		return
	}
	if err := bus.Publish(ctx, channel, event); err != nil {
		log.Warn().Err(err).
			Str("channel", channel).
			Str("event_type", string(event.EventType)).
			Str("project", event.ProjectName).
			Msg("failed to publish change event")
	}
}

// requireAccess returns FORBIDDEN when principal may not touch project
func requireAccess(principal *entities.Principal, project string) error {
	if principal == nil {
		return apperrors.NewUnauthorizedError("authentication required")
	}
	if !principal.CanAccess(project) {
		return apperrors.NewForbiddenError("no access to project " + project)
	}
	return nil
}

// scope resolves the project set for a read on behalf of principal
func scope(principal *entities.Principal, requested string) ([]string, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	projects, ok := principal.ScopeProjects(requested)
	if !ok {
		if requested != "" {
			return nil, apperrors.NewForbiddenError("no access to project " + requested)
		}
		return nil, apperrors.NewForbiddenError("no projects assigned")
	}
	return projects, nil
}

// TodayResolver decides which calendar date tab predicates compare against
type TodayResolver struct {
	projects repositories.ProjectRepository
	fallback *time.Location
	now      func() time.Time
}

// NewTodayResolver falls back to defaultTZ, then UTC, when a project has no timezone
func NewTodayResolver(projects repositories.ProjectRepository, defaultTZ string) *TodayResolver {
	loc, err := time.LoadLocation(defaultTZ)
	if err != nil || defaultTZ == "" {
		loc = time.UTC
	}
	return &TodayResolver{projects: projects, fallback: loc, now: time.Now}
}

// Today uses the project's timezone when exactly one project is in scope
func (r *TodayResolver) Today(ctx context.Context, projects []string) time.Time {
	loc := r.fallback
	if len(projects) == 1 && r.projects != nil {
		p, err := r.projects.GetByName(ctx, projects[0])
		if err == nil {
			loc = p.Location(r.fallback)
		} else if !apperrors.IsNotFound(err) {
			log.Warn().Err(err).Str("project", projects[0]).Msg("project timezone lookup failed")
		}
	}
	return entities.Today(r.now(), loc)
}
