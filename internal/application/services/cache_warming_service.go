package services

import (
	"context"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
)

// PortalTabCounter counts a project's portal view
type PortalTabCounter interface {
	CountPortalTabs(ctx context.Context, project string) (*entities.TabCounts, error)
}

// WarmableCounter is what the warmer drives. Both counts populate the
// tab-count cache as a side effect.
type WarmableCounter interface {
	ProjectTabCounter
	PortalTabCounter
}

// WarmResult summarises one warming pass
type WarmResult struct {
	Projects int
	Warmed   int
	Failed   int
}

// CacheWarmingService precomputes tab counts for active projects so the
// first dashboard load after a change or at the start of a day is cheap.
type CacheWarmingService struct {
	projects ActiveProjectLister
	counter  WarmableCounter
}

// NewCacheWarmingService creates a new cache warming service
func NewCacheWarmingService(projects ActiveProjectLister, counter WarmableCounter) *CacheWarmingService {
	return &CacheWarmingService{projects: projects, counter: counter}
}

// WarmCache counts every active project's dashboard and portal tabs.
// A failing project is logged and skipped.
func (s *CacheWarmingService) WarmCache(ctx context.Context) (WarmResult, error) {
	logger := observability.Component("cache_warming")

	projects, err := s.projects.ListActive(ctx)
	if err != nil {
		return WarmResult{}, err
	}

	result := WarmResult{Projects: len(projects)}
	for _, p := range projects {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := s.counter.CountProjectTabs(ctx, p.ProjectName); err != nil {
			result.Failed++
			logger.Warn().Err(err).Str("project", p.ProjectName).Msg("failed to warm tab counts")
			continue
		}
		if _, err := s.counter.CountPortalTabs(ctx, p.ProjectName); err != nil {
			result.Failed++
			logger.Warn().Err(err).Str("project", p.ProjectName).Msg("failed to warm portal tab counts")
			continue
		}
		result.Warmed++
	}

	logger.Info().
		Int("projects", result.Projects).
		Int("warmed", result.Warmed).
		Int("failed", result.Failed).
		Msg("cache warming completed")
	return result, nil
}

// Run warms immediately and then every interval until ctx is cancelled
func (s *CacheWarmingService) Run(ctx context.Context, interval time.Duration) {
	logger := observability.Component("cache_warming")
	for {
		if _, err := s.WarmCache(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("cache warming failed")
		}
		if interval <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
