package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// TabCountBatchSize is the page size used when scanning rows for tab counts
const TabCountBatchSize = 1000

// AppointmentFilter scopes an appointment read to projects, a tab and a page
type AppointmentFilter struct {
	// Projects restricts rows to these tenants. Empty means every project.
	Projects []string
	// Portal limits rows to confirmed appointments for a project portal.
	Portal bool
	Tab    *entities.Tab
	Search string
	// Today is the calendar date the tab predicates compare against.
	Today  time.Time
	Limit  int
	Offset int
}

// ParseClaim is an appointment claimed for intake parsing
type ParseClaim struct {
	ID          string
	ProjectName string
	Notes       string
}

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// List returns one page of appointments ordered by date then creation time
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)

	// ListTabRows returns up to limit tab projections with id > afterID, ordered by id
	ListTabRows(ctx context.Context, filter AppointmentFilter, afterID string, limit int) ([]entities.TabRow, error)

	// ListAfter returns up to limit full appointments with id > afterID, ordered by id
	ListAfter(ctx context.Context, afterID string, limit int) ([]*entities.Appointment, error)

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// ApplyPatch updates workflow fields and returns the updated row
	ApplyPatch(ctx context.Context, id string, patch entities.AppointmentPatch) (*entities.Appointment, error)

	// CycleColor advances color_indicator one step and returns the stored value
	CycleColor(ctx context.Context, id string) (entities.ColorIndicator, error)

	// SetColor stores an explicit color
	SetColor(ctx context.Context, id string, color entities.ColorIndicator) error

	// ClaimUnparsed marks up to limit unparsed appointments as started and returns them
	ClaimUnparsed(ctx context.Context, limit int) ([]ParseClaim, error)

	// CompleteParse stores parser output for a claimed appointment
	CompleteParse(ctx context.Context, id string, result *entities.ParseResult) error

	// FailParse records a parser failure without completing the row
	FailParse(ctx context.Context, id string, reason string) error

	// ResetParsing clears parsing state so the rows are claimed again
	ResetParsing(ctx context.Context, ids []string, projects []string) (int64, error)
}
