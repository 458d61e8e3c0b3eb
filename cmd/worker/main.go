package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/adapters/database"
	"github.com/zatekoja/intakedesk/internal/adapters/events"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/functions"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/redis"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	"github.com/zatekoja/intakedesk/pkg/config"
)

func main() {
	var once bool
	flag.BoolVar(&once, "once", false, "process a single batch and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-worker", cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.Setup(ctx, cfg.OTEL)
	if err != nil {
		log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("error shutting down OpenTelemetry")
			}
		}()
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	invoker := functions.NewClient(cfg.Functions)
	if invoker == nil {
		log.Fatal().Msg("FUNCTIONS_BASE_URL is required for the auto-parse worker")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Change events keep the API's tab-count cache and the search index
	// current. The worker still parses without them.
	var eventBus providers.EventBus
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, change events disabled")
	} else {
		defer redisClient.Close()
		eventBus = events.NewRedisEventBus(redisClient)
		defer eventBus.Close()
	}

	worker := services.NewAutoParseWorker(
		database.NewAppointmentAdapter(pgClient),
		invoker,
		eventBus,
		metrics,
		cfg.Worker.ParseFunction,
		cfg.Worker.AutoParseBatch,
		cfg.Worker.AutoParseInterval,
	)

	if once {
		result, err := worker.RunOnce(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("auto-parse pass failed")
		}
		log.Info().
			Int("claimed", result.Claimed).
			Int("parsed", result.Parsed).
			Int("failed", result.Failed).
			Msg("auto-parse pass finished")
		return
	}

	worker.Run(ctx)
}
