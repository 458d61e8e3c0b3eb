package entities

import "time"

// Lead is a pre-appointment intake record from new_leads.
// It is the source of truth for patient-supplied intake data.
type Lead struct {
	ID                 string  `json:"id" db:"id"`
	ProjectName        string  `json:"project_name" db:"project_name"`
	GHLID              *string `json:"ghl_id,omitempty" db:"ghl_id"`
	LeadName           string  `json:"lead_name" db:"lead_name"`
	FirstName          *string `json:"first_name,omitempty" db:"first_name"`
	LastName           *string `json:"last_name,omitempty" db:"last_name"`
	PhoneNumber        *string `json:"phone_number,omitempty" db:"phone_number"`
	Email              *string `json:"email,omitempty" db:"email"`
	DOB                *string `json:"dob,omitempty" db:"dob"`
	PatientIntakeNotes *string `json:"patient_intake_notes,omitempty" db:"patient_intake_notes"`

	ParsedIntake

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// LeadQuery filters the leads list
type LeadQuery struct {
	Projects []string
	Search   string
	Page     int
	PageSize int
}
