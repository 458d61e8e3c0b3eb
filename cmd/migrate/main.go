package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	"github.com/zatekoja/intakedesk/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-migrate", cfg.App.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}
