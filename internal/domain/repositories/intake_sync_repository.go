package repositories

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// IntakeSyncRepository copies intake data from leads onto matching appointments
type IntakeSyncRepository interface {
	// Sync runs every match strategy in order inside one transaction.
	// An empty project syncs all projects.
	Sync(ctx context.Context, project string) ([]entities.SyncStrategyResult, error)
}
