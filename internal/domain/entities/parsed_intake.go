package entities

import (
	"errors"
	"fmt"
	"net/mail"
)

// ParsedContactInfo is the contact section extracted from intake notes
type ParsedContactInfo struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

// ParsedDemographics is the demographics section extracted from intake notes
type ParsedDemographics struct {
	DOB    *string `json:"dob,omitempty"`
	Age    *int    `json:"age,omitempty"`
	Gender *string `json:"gender,omitempty"`
	Height *string `json:"height,omitempty"`
	Weight *string `json:"weight,omitempty"`
}

// ParsedInsurance is the insurance section extracted from intake notes
type ParsedInsurance struct {
	Provider      *string `json:"provider,omitempty"`
	Plan          *string `json:"plan,omitempty"`
	MemberID      *string `json:"member_id,omitempty"`
	GroupNumber   *string `json:"group_number,omitempty"`
	InsuranceType *string `json:"insurance_type,omitempty"`
}

// ParsedPathology is the complaint section extracted from intake notes
type ParsedPathology struct {
	PrimaryComplaint   *string  `json:"primary_complaint,omitempty"`
	Symptoms           []string `json:"symptoms,omitempty"`
	Duration           *string  `json:"duration,omitempty"`
	PainLevel          *int     `json:"pain_level,omitempty"`
	PreviousTreatments []string `json:"previous_treatments,omitempty"`
}

// ParsedMedical is the history section extracted from intake notes
type ParsedMedical struct {
	Medications []string `json:"medications,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Surgeries   []string `json:"surgeries,omitempty"`
}

// ParsedIntake groups the structured intake sections stored as jsonb columns
// on both appointments and leads.
type ParsedIntake struct {
	ContactInfo  *ParsedContactInfo  `json:"parsed_contact_info,omitempty" db:"parsed_contact_info"`
	Demographics *ParsedDemographics `json:"parsed_demographics,omitempty" db:"parsed_demographics"`
	Insurance    *ParsedInsurance    `json:"parsed_insurance_info,omitempty" db:"parsed_insurance_info"`
	Pathology    *ParsedPathology    `json:"parsed_pathology_info,omitempty" db:"parsed_pathology_info"`
	Medical      *ParsedMedical      `json:"parsed_medical_info,omitempty" db:"parsed_medical_info"`

	DetectedInsuranceProvider *string `json:"detected_insurance_provider,omitempty" db:"detected_insurance_provider"`
	DetectedInsurancePlan     *string `json:"detected_insurance_plan,omitempty" db:"detected_insurance_plan"`
	DetectedInsuranceID       *string `json:"detected_insurance_id,omitempty" db:"detected_insurance_id"`
}

// Validate checks a contact section
func (c *ParsedContactInfo) Validate() error {
	if c == nil || c.Email == nil || *c.Email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(*c.Email); err != nil {
		return fmt.Errorf("contact email %q is invalid", *c.Email)
	}
	return nil
}

// Validate checks a demographics section
func (d *ParsedDemographics) Validate() error {
	if d == nil || d.Age == nil {
		return nil
	}
	if *d.Age < 0 || *d.Age > 130 {
		return fmt.Errorf("age %d out of range", *d.Age)
	}
	return nil
}

// Validate checks a pathology section
func (p *ParsedPathology) Validate() error {
	if p == nil || p.PainLevel == nil {
		return nil
	}
	if *p.PainLevel < 0 || *p.PainLevel > 10 {
		return fmt.Errorf("pain level %d out of range 0-10", *p.PainLevel)
	}
	return nil
}

// Validate checks every section and joins the failures
func (p *ParsedIntake) Validate() error {
	return errors.Join(
		p.ContactInfo.Validate(),
		p.Demographics.Validate(),
		p.Pathology.Validate(),
	)
}

// IsEmpty reports whether the parser produced nothing
func (p *ParsedIntake) IsEmpty() bool {
	return p.ContactInfo == nil && p.Demographics == nil && p.Insurance == nil &&
		p.Pathology == nil && p.Medical == nil && p.DetectedInsuranceProvider == nil
}

// ParseResult is what the intake formatting function returns for one appointment
type ParseResult struct {
	ParsedIntake
	AISummary *string `json:"ai_summary,omitempty"`
}
