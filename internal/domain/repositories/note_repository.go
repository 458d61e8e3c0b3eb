package repositories

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// NoteRepository defines the interface for appointment notes
type NoteRepository interface {
	ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentNote, error)
	Create(ctx context.Context, note *entities.AppointmentNote) error
	Delete(ctx context.Context, appointmentID, noteID string) error
	// CountByAppointments returns note counts keyed by appointment id
	CountByAppointments(ctx context.Context, appointmentIDs []string) (map[string]int, error)
}
