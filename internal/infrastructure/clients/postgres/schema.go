package postgres

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// schema is applied in order. Every statement must be idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_name TEXT NOT NULL UNIQUE,
		display_name TEXT,
		logo_url TEXT,
		primary_color TEXT,
		portal_password_hash TEXT,
		ghl_location_id TEXT,
		timezone TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS all_appointments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		ghl_id TEXT,
		ghl_appointment_id TEXT,
		project_name TEXT NOT NULL,
		date_of_appointment DATE,
		requested_time TEXT,
		date_appointment_created DATE,
		calendar_name TEXT,
		status TEXT,
		confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		is_reserved_block BOOLEAN NOT NULL DEFAULT FALSE,
		lead_name TEXT NOT NULL,
		lead_phone_number TEXT,
		lead_email TEXT,
		dob TEXT,
		patient_intake_notes TEXT,
		parsed_contact_info JSONB,
		parsed_demographics JSONB,
		parsed_insurance_info JSONB,
		parsed_pathology_info JSONB,
		parsed_medical_info JSONB,
		detected_insurance_provider TEXT,
		detected_insurance_plan TEXT,
		detected_insurance_id TEXT,
		ai_summary TEXT,
		parsing_started_at TIMESTAMPTZ,
		parsing_completed_at TIMESTAMPTZ,
		parsing_error TEXT,
		procedure_ordered BOOLEAN,
		internal_process_complete BOOLEAN NOT NULL DEFAULT FALSE,
		was_ever_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		is_viewed BOOLEAN NOT NULL DEFAULT FALSE,
		color_indicator TEXT NOT NULL DEFAULT 'none'
			CHECK (color_indicator IN ('none', 'yellow', 'green', 'red')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_project_date ON all_appointments (project_name, date_of_appointment DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_unparsed ON all_appointments (created_at)
		WHERE parsing_completed_at IS NULL AND parsing_started_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_ghl_id ON all_appointments (ghl_id)`,

	`CREATE TABLE IF NOT EXISTS new_leads (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_name TEXT NOT NULL,
		ghl_id TEXT,
		lead_name TEXT NOT NULL,
		first_name TEXT,
		last_name TEXT,
		phone_number TEXT,
		email TEXT,
		dob TEXT,
		patient_intake_notes TEXT,
		parsed_contact_info JSONB,
		parsed_demographics JSONB,
		parsed_insurance_info JSONB,
		parsed_pathology_info JSONB,
		parsed_medical_info JSONB,
		detected_insurance_provider TEXT,
		detected_insurance_plan TEXT,
		detected_insurance_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_project_created ON new_leads (project_name, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS csv_import_history (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		import_type TEXT NOT NULL CHECK (import_type IN ('appointments', 'leads')),
		project_name TEXT NOT NULL,
		file_name TEXT NOT NULL DEFAULT '',
		imported_record_ids UUID[] NOT NULL DEFAULT '{}',
		is_undone BOOLEAN NOT NULL DEFAULT FALSE,
		undone_at TIMESTAMPTZ,
		created_by TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS appointment_notes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		appointment_id UUID NOT NULL REFERENCES all_appointments(id) ON DELETE CASCADE,
		note_text TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notes_appointment ON appointment_notes (appointment_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS project_messages (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		project_name TEXT NOT NULL,
		sender TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		must_change_password BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('admin', 'agent', 'project_user'))
	)`,
	`CREATE TABLE IF NOT EXISTS project_user_access (
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		project_name TEXT NOT NULL,
		PRIMARY KEY (user_id, project_name)
	)`,

	`CREATE TABLE IF NOT EXISTS security_events (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		event_type TEXT NOT NULL,
		severity TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		details JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema. It is safe to run on every start.
func (c *Client) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("schema up to date")
	return nil
}
