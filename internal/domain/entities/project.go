package entities

import "time"

// Project is a tenant: one client practice with its own portal and data partition
type Project struct {
	ID                 string    `json:"id" db:"id"`
	ProjectName        string    `json:"project_name" db:"project_name"`
	DisplayName        *string   `json:"display_name,omitempty" db:"display_name"`
	LogoURL            *string   `json:"logo_url,omitempty" db:"logo_url"`
	PrimaryColor       *string   `json:"primary_color,omitempty" db:"primary_color"`
	PortalPasswordHash *string   `json:"-" db:"portal_password_hash"`
	GHLLocationID      *string   `json:"ghl_location_id,omitempty" db:"ghl_location_id"`
	Timezone           *string   `json:"timezone,omitempty" db:"timezone"`
	Active             bool      `json:"active" db:"active"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// Branding is the public subset of a project shown on its portal
type Branding struct {
	ProjectName  string  `json:"project_name"`
	DisplayName  *string `json:"display_name,omitempty"`
	LogoURL      *string `json:"logo_url,omitempty"`
	PrimaryColor *string `json:"primary_color,omitempty"`
}

// Branding returns the portal-safe view of the project
func (p *Project) Branding() Branding {
	return Branding{
		ProjectName:  p.ProjectName,
		DisplayName:  p.DisplayName,
		LogoURL:      p.LogoURL,
		PrimaryColor: p.PrimaryColor,
	}
}

// Location resolves the project's timezone, falling back to def
func (p *Project) Location(def *time.Location) *time.Location {
	if p != nil && p.Timezone != nil && *p.Timezone != "" {
		if loc, err := time.LoadLocation(*p.Timezone); err == nil {
			return loc
		}
	}
	return def
}

// ProjectMessage is a team message posted against a project
type ProjectMessage struct {
	ID          string    `json:"id" db:"id"`
	ProjectName string    `json:"project_name" db:"project_name"`
	Sender      string    `json:"sender" db:"sender"`
	Message     string    `json:"message" db:"message"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// PortalSession is an authenticated visit to a project portal
type PortalSession struct {
	Token       string    `json:"session_token"`
	ProjectName string    `json:"project_name"`
	ExpiresAt   time.Time `json:"expires_at"`
}
