package services

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
)

// LeadService exposes imported leads to the dashboard
type LeadService struct {
	repo repositories.LeadRepository
}

// NewLeadService creates a new lead service
func NewLeadService(repo repositories.LeadRepository) *LeadService {
	return &LeadService{repo: repo}
}

// List returns a page of leads from the principal's projects, newest first
func (s *LeadService) List(ctx context.Context, principal *entities.Principal, project, search string, page, pageSize int) (*Page[*entities.Lead], error) {
	projects, err := scope(principal, project)
	if err != nil {
		return nil, err
	}
	page, pageSize, _, _ = normalizePage(page, pageSize)
	leads, err := s.repo.List(ctx, entities.LeadQuery{
		Projects: projects,
		Search:   search,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []*entities.Lead{}
	}
	return &Page[*entities.Lead]{Data: leads, Page: page, PageSize: pageSize}, nil
}

// Get returns one lead the principal may see
func (s *LeadService) Get(ctx context.Context, principal *entities.Principal, id string) (*entities.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireAccess(principal, lead.ProjectName); err != nil {
		return nil, err
	}
	return lead, nil
}
