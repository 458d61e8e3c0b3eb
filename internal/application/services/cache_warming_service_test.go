package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

type recordingCounter struct {
	dashboard []string
	portal    []string
	fail      string
}

func (c *recordingCounter) CountProjectTabs(_ context.Context, project string) (*entities.TabCounts, error) {
	c.dashboard = append(c.dashboard, project)
	if project == c.fail {
		return nil, errors.New("scan failed")
	}
	return &entities.TabCounts{}, nil
}

func (c *recordingCounter) CountPortalTabs(_ context.Context, project string) (*entities.TabCounts, error) {
	c.portal = append(c.portal, project)
	return &entities.TabCounts{}, nil
}

type failingProjects struct{}

func (failingProjects) ListActive(context.Context) ([]*entities.Project, error) {
	return nil, errors.New("db down")
}

func TestCacheWarmingService_WarmCache(t *testing.T) {
	counter := &recordingCounter{fail: "broken"}
	svc := services.NewCacheWarmingService(
		staticProjects{{ProjectName: "acme"}, {ProjectName: "broken"}, {ProjectName: "globex"}},
		counter,
	)

	result, err := svc.WarmCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, services.WarmResult{Projects: 3, Warmed: 2, Failed: 1}, result)
	assert.Equal(t, []string{"acme", "broken", "globex"}, counter.dashboard)
	assert.Equal(t, []string{"acme", "globex"}, counter.portal)
}

func TestCacheWarmingService_ListFailure(t *testing.T) {
	svc := services.NewCacheWarmingService(failingProjects{}, &recordingCounter{})

	_, err := svc.WarmCache(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestCacheWarmingService_RunOnceWithoutInterval(t *testing.T) {
	counter := &recordingCounter{}
	svc := services.NewCacheWarmingService(staticProjects{{ProjectName: "acme"}}, counter)

	svc.Run(context.Background(), 0)
	assert.Equal(t, []string{"acme"}, counter.dashboard)
}
