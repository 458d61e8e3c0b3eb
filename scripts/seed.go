package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/adapters/database"
	"github.com/zatekoja/intakedesk/internal/domain/entities"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	"github.com/zatekoja/intakedesk/pkg/config"
	apperrors "github.com/zatekoja/intakedesk/pkg/errors"
)

const demoProject = "demo"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger("intakedesk-seed", cfg.App.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to DB")
	}
	defer pgClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Warn().Msg("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				appointment_notes,
				all_appointments,
				new_leads,
				csv_import_history,
				security_events,
				project_user_access,
				user_roles,
				users,
				project_messages,
				projects
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	// 1. Demo tenant with a portal password
	portalHash, err := auth.HashPassword(getEnv("SEED_PORTAL_PASSWORD", "demo-portal"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash portal password")
	}
	tz := "America/New_York"
	display := "Demo Clinic"
	project := &entities.Project{
		ProjectName:        demoProject,
		DisplayName:        &display,
		Timezone:           &tz,
		PortalPasswordHash: &portalHash,
		Active:             true,
	}
	if err := database.NewProjectAdapter(pgClient).Create(ctx, project); err != nil {
		skipOrFail(err, "project")
	}

	// 2. Admin account; the first login forces a password change
	adminHash, err := auth.HashPassword(getEnv("SEED_ADMIN_PASSWORD", "change-me-now"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash admin password")
	}
	admin := &entities.User{
		Email:              getEnv("SEED_ADMIN_EMAIL", "admin@example.com"),
		FullName:           "Seed Admin",
		PasswordHash:       adminHash,
		MustChangePassword: true,
	}
	if err := database.NewUserAdapter(pgClient).Create(ctx, admin, entities.RoleAdmin, nil); err != nil {
		skipOrFail(err, "admin user")
	}

	// 3. One appointment per tab, imported so the batch can be undone
	today := time.Now().UTC()
	day := func(offset int) string { return today.AddDate(0, 0, offset).Format("2006-01-02") }
	imp := &entities.CSVImport{
		ImportType:  entities.ImportTypeAppointments,
		ProjectName: demoProject,
		FileName:    "seed.csv",
	}
	err = database.NewImportAdapter(pgClient).Import(ctx, imp, []repositories.ImportRecord{
		{"lead_name": "Avery Future", "status": "Confirmed", "confirmed": true, "date_of_appointment": day(3), "procedure_ordered": nil},
		{"lead_name": "Blake Past", "status": "Showed", "date_of_appointment": day(-5), "procedure_ordered": true},
		{"lead_name": "Casey Review", "status": nil, "date_of_appointment": day(-2), "procedure_ordered": nil},
		{"lead_name": "Drew Cancelled", "status": "Cancelled", "date_of_appointment": day(1), "procedure_ordered": nil},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to seed appointments")
	}

	log.Info().
		Str("project", demoProject).
		Str("admin", admin.Email).
		Str("import_id", imp.ID).
		Int("appointments", len(imp.ImportedRecordIDs)).
		Msg("seeding completed")
}

func skipOrFail(err error, what string) {
	if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
		log.Info().Str("entity", what).Msg("already seeded, skipping")
		return
	}
	log.Fatal().Err(err).Str("entity", what).Msg("failed to seed")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
