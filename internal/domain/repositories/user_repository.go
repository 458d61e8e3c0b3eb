package repositories

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// UserRepository defines the interface for dashboard accounts and their access
type UserRepository interface {
	// Create inserts the user, its role and project access in one transaction
	Create(ctx context.Context, user *entities.User, role entities.Role, projects []string) error

	GetByID(ctx context.Context, id string) (*entities.User, error)

	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// GetAccess returns the role and accessible project names of a user
	GetAccess(ctx context.Context, userID string) (entities.Role, []string, error)

	UpdatePassword(ctx context.Context, userID, hash string, mustChange bool) error

	ReplaceProjectAccess(ctx context.Context, userID string, projects []string) error
}

// SecurityEventRepository persists security audit events
type SecurityEventRepository interface {
	Log(ctx context.Context, event *entities.SecurityEvent) error
}
