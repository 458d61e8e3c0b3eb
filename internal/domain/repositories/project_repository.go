package repositories

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// ProjectRepository defines the interface for tenant configuration
type ProjectRepository interface {
	// List returns projects by name. Nil names returns every project.
	List(ctx context.Context, names []string, activeOnly bool) ([]*entities.Project, error)

	GetByName(ctx context.Context, name string) (*entities.Project, error)

	Create(ctx context.Context, project *entities.Project) error

	UpdatePortalPassword(ctx context.Context, name string, hash string) error

	UpdateTimezone(ctx context.Context, name string, timezone string) error
}

// ProjectMessageRepository stores team messages
type ProjectMessageRepository interface {
	Create(ctx context.Context, msg *entities.ProjectMessage) error
	ListByProject(ctx context.Context, project string, limit int) ([]*entities.ProjectMessage, error)
}
