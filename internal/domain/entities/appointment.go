package entities

import (
	"strings"
	"time"
)

// Appointment is a row of all_appointments, scoped to one project
type Appointment struct {
	ID                string     `json:"id" db:"id"`
	GHLID             *string    `json:"ghl_id,omitempty" db:"ghl_id"`
	GHLAppointmentID  *string    `json:"ghl_appointment_id,omitempty" db:"ghl_appointment_id"`
	ProjectName       string     `json:"project_name" db:"project_name"`
	DateOfAppointment *time.Time `json:"date_of_appointment,omitempty" db:"date_of_appointment"`
	RequestedTime     *string    `json:"requested_time,omitempty" db:"requested_time"`
	DateCreated       *time.Time `json:"date_appointment_created,omitempty" db:"date_appointment_created"`
	CalendarName      *string    `json:"calendar_name,omitempty" db:"calendar_name"`
	Status            *string    `json:"status" db:"status"`
	Confirmed         bool       `json:"confirmed" db:"confirmed"`
	IsReservedBlock   bool       `json:"is_reserved_block" db:"is_reserved_block"`

	LeadName           string  `json:"lead_name" db:"lead_name"`
	LeadPhoneNumber    *string `json:"lead_phone_number,omitempty" db:"lead_phone_number"`
	LeadEmail          *string `json:"lead_email,omitempty" db:"lead_email"`
	DOB                *string `json:"dob,omitempty" db:"dob"`
	PatientIntakeNotes *string `json:"patient_intake_notes,omitempty" db:"patient_intake_notes"`

	ParsedIntake
	AISummary          *string    `json:"ai_summary,omitempty" db:"ai_summary"`
	ParsingStartedAt   *time.Time `json:"parsing_started_at,omitempty" db:"parsing_started_at"`
	ParsingCompletedAt *time.Time `json:"parsing_completed_at,omitempty" db:"parsing_completed_at"`
	ParsingError       *string    `json:"parsing_error,omitempty" db:"parsing_error"`

	ProcedureOrdered        *bool          `json:"procedure_ordered" db:"procedure_ordered"`
	InternalProcessComplete bool           `json:"internal_process_complete" db:"internal_process_complete"`
	WasEverConfirmed        bool           `json:"was_ever_confirmed" db:"was_ever_confirmed"`
	IsViewed                bool           `json:"is_viewed" db:"is_viewed"`
	ColorIndicator          ColorIndicator `json:"color_indicator" db:"color_indicator"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppointmentListItem is an appointment as returned by list endpoints
type AppointmentListItem struct {
	*Appointment
	NoteCount int `json:"note_count"`
}

// AppointmentPatch holds the workflow fields an agent may change.
// Nil pointers are left untouched. ProcedureOrdered uses SetProcedureOrdered
// to distinguish "clear" from "leave alone".
type AppointmentPatch struct {
	Status                  *string `json:"status,omitempty"`
	ProcedureOrdered        *bool   `json:"procedure_ordered,omitempty"`
	SetProcedureOrdered     bool    `json:"-"`
	InternalProcessComplete *bool   `json:"internal_process_complete,omitempty"`
	IsViewed                *bool   `json:"is_viewed,omitempty"`
	Confirmed               *bool   `json:"confirmed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p AppointmentPatch) IsEmpty() bool {
	return p.Status == nil && !p.SetProcedureOrdered && p.InternalProcessComplete == nil &&
		p.IsViewed == nil && p.Confirmed == nil
}

// IsCancelledStatus reports whether a free-text status means cancelled.
// Matching is case-insensitive and substring based, mirroring ILIKE '%cancelled%'.
func IsCancelledStatus(status *string) bool {
	if status == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*status), "cancelled")
}

// IsConfirmedStatus reports whether a status equals "confirmed" ignoring case
func IsConfirmedStatus(status *string) bool {
	return status != nil && strings.EqualFold(*status, "confirmed")
}

// DateOnly drops the clock part of t, keeping its calendar date in UTC
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in loc
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(now.In(loc))
}
