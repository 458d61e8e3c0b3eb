package entities

import "time"

// MaxNoteLength bounds a single appointment note
const MaxNoteLength = 5000

// AppointmentNote is one entry in an appointment's audit trail
type AppointmentNote struct {
	ID            string    `json:"id" db:"id"`
	AppointmentID string    `json:"appointment_id" db:"appointment_id"`
	NoteText      string    `json:"note_text" db:"note_text"`
	CreatedBy     string    `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
