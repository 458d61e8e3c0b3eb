package services

import (
	"context"
	"sort"
	"sync"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const analyticsConcurrency = 4

// ProjectCounts pairs a project with its tab counts
type ProjectCounts struct {
	ProjectName string             `json:"project_name"`
	Counts      entities.TabCounts `json:"counts"`
}

// ActiveProjectLister lists active tenants
type ActiveProjectLister interface {
	ListActive(ctx context.Context) ([]*entities.Project, error)
}

// ProjectTabCounter counts one project's tabs
type ProjectTabCounter interface {
	CountProjectTabs(ctx context.Context, project string) (*entities.TabCounts, error)
}

// AnalyticsService computes cross-project dashboards for admins
type AnalyticsService struct {
	projects ActiveProjectLister
	counter  ProjectTabCounter
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(projects ActiveProjectLister, counter ProjectTabCounter) *AnalyticsService {
	return &AnalyticsService{projects: projects, counter: counter}
}

// ProjectTabCounts counts every active project with a bounded number of
// concurrent scans
func (s *AnalyticsService) ProjectTabCounts(ctx context.Context, principal *entities.Principal) ([]ProjectCounts, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.NewForbiddenError("analytics requires admin")
	}
	projects, err := s.projects.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	out := make([]ProjectCounts, 0, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyticsConcurrency)
	for _, p := range projects {
		name := p.ProjectName
		g.Go(func() error {
			counts, err := s.counter.CountProjectTabs(gctx, name)
			if err != nil {
				return err
			}
			mu.Lock()
			out = append(out, ProjectCounts{ProjectName: name, Counts: *counts})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ProjectName < out[j].ProjectName })
	return out, nil
}
