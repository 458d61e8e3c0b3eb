package providers

import (
	"context"

	"github.com/zatekoja/intakedesk/internal/domain/entities"
)

// AppointmentSearchHit is a search result with its relevance rank
type AppointmentSearchHit struct {
	ID                string  `json:"id"`
	ProjectName       string  `json:"project_name"`
	LeadName          string  `json:"lead_name"`
	LeadPhoneNumber   string  `json:"lead_phone_number,omitempty"`
	LeadEmail         string  `json:"lead_email,omitempty"`
	Status            string  `json:"status,omitempty"`
	DateOfAppointment string  `json:"date_of_appointment,omitempty"`
	Score             float64 `json:"score"`
}

// SearchProvider indexes appointments for full-text lookup
type SearchProvider interface {
	Index(ctx context.Context, appointments ...*entities.Appointment) error
	Delete(ctx context.Context, ids ...string) error
	// Search matches q against patient fields. Empty projects means all projects.
	Search(ctx context.Context, q string, projects []string, limit int) ([]AppointmentSearchHit, error)
}
