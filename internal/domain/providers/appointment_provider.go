package providers

import (
	"context"
)

// Calendar is a booking calendar in the external CRM
type Calendar struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"is_active"`
}

// AppointmentProvider defines the interface for the external CRM that owns
// calendars and contacts (GoHighLevel).
type AppointmentProvider interface {
	// GetCalendars lists calendars of a CRM location
	GetCalendars(ctx context.Context, locationID string) ([]Calendar, error)

	// UpdateAppointmentStatus mirrors a dashboard status onto the CRM appointment
	UpdateAppointmentStatus(ctx context.Context, appointmentID, status string) error

	// SetContactDND toggles do-not-disturb on a CRM contact
	SetContactDND(ctx context.Context, contactID string, dnd bool) error

	// GetLocationTimezone returns the IANA timezone configured on a CRM location
	GetLocationTimezone(ctx context.Context, locationID string) (string, error)
}
