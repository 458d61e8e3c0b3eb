package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/adapters/database"
	"github.com/zatekoja/intakedesk/internal/adapters/events"
	"github.com/zatekoja/intakedesk/internal/adapters/search"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/redis"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	"github.com/zatekoja/intakedesk/pkg/config"
)

func main() {
	var reset, follow bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "drop the Typesense collection before reindexing")
	flag.BoolVar(&follow, "follow", false, "keep the index current from appointment change events")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for full reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.App.Env)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("interval must be greater than zero")
		}
	}
	if os.Getenv("RESET_TYPESENSE") == "true" {
		reset = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Typesense client")
	}

	if reset {
		log.Info().Msg("dropping appointments collection")
		if err := tsClient.DropSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to drop collection")
		}
	}
	if err := tsClient.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Typesense schema")
	}

	indexer := services.NewSearchIndexService(
		database.NewAppointmentAdapter(pgClient),
		search.NewTypesenseAdapter(tsClient),
	)

	if follow {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Redis client")
		}
		defer redisClient.Close()
		bus := events.NewRedisEventBus(redisClient)
		defer bus.Close()

		go func() {
			if err := indexer.Follow(ctx, bus); err != nil {
				log.Error().Err(err).Msg("change feed stopped")
			}
		}()
	}

	for {
		count, err := indexer.Reindex(ctx)
		if err != nil {
			log.Error().Err(err).Msg("reindex failed")
		} else {
			log.Info().Int("documents", count).Msg("reindex complete")
		}

		if interval <= 0 && !follow {
			return
		}

		var next <-chan time.Time
		if interval > 0 {
			log.Info().Dur("interval", interval).Msg("next full reindex scheduled")
			next = time.After(interval)
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("indexer shutting down")
			return
		case <-next:
		}
	}
}
