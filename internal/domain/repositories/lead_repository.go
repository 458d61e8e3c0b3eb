package repositories

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// LeadRepository defines read access to new_leads
type LeadRepository interface {
	List(ctx context.Context, query entities.LeadQuery) ([]*entities.Lead, error)
	GetByID(ctx context.Context, id string) (*entities.Lead, error)
}
