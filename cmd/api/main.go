package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/intakedesk/internal/adapters/cache"
	"github.com/zatekoja/intakedesk/internal/adapters/database"
	"github.com/zatekoja/intakedesk/internal/adapters/events"
	"github.com/zatekoja/intakedesk/internal/adapters/search"
	"github.com/zatekoja/intakedesk/internal/api/handlers"
	"github.com/zatekoja/intakedesk/internal/api/routes"
	"github.com/zatekoja/intakedesk/internal/application/services"
	"github.com/zatekoja/intakedesk/internal/domain/providers"
	"github.com/zatekoja/intakedesk/internal/infrastructure/auth"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/functions"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/ghl"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/redis"
	"github.com/zatekoja/intakedesk/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/intakedesk/internal/infrastructure/notifications"
	"github.com/zatekoja/intakedesk/internal/infrastructure/observability"
	"github.com/zatekoja/intakedesk/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-api", cfg.App.Env)

	// Set up context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry if enabled
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

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	// Redis backs rate limiting and portal sessions, both of which must
	// fail closed, so the API does not start without it.
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()
	log.Info().Msg("Redis client initialized")

	// Search is optional; listing and tab filters work without it
	var searchProvider providers.SearchProvider
	typesenseClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		log.Warn().Err(err).Msg("Typesense unavailable, appointment search disabled")
	} else {
		searchProvider = search.NewTypesenseAdapter(typesenseClient)
	}

	// External integrations, each nil when unconfigured
	var crm providers.AppointmentProvider
	if client := ghl.NewClient(cfg.GHL); client != nil {
		crm = client
	} else {
		log.Warn().Msg("GHL_API_KEY is not set; CRM features disabled")
	}

	var invoker providers.FunctionInvoker
	if client := functions.NewClient(cfg.Functions); client != nil {
		invoker = client
	} else {
		log.Warn().Msg("FUNCTIONS_BASE_URL is not set; function proxy and auto-parse disabled")
	}

	var emailSender providers.EmailSender
	if client := notifications.NewEmailClient(cfg.Email); client != nil {
		emailSender = client
	} else {
		log.Warn().Msg("RESEND_API_KEY is not set; welcome emails disabled")
	}

	broadcaster := newBroadcaster(cfg.Notify)

	// Initialize adapters
	cacheProvider := cache.NewRedisAdapter(redisClient)
	eventBus := events.NewRedisEventBus(redisClient)
	rateLimiter := cache.NewRedisRateLimiter(redisClient.Client())
	portalSessions := cache.NewRedisPortalSessions(redisClient.Client())

	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	noteRepo := database.NewNoteAdapter(sqlx.NewDb(pgClient.DB(), "postgres"))
	importRepo := database.NewImportAdapter(pgClient)
	intakeSyncRepo := database.NewIntakeSyncAdapter(pgClient)
	leadRepo := database.NewLeadAdapter(pgClient)
	projectRepo := database.NewProjectAdapter(pgClient)
	messageRepo := database.NewProjectMessageAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)
	securityRepo := database.NewSecurityEventAdapter(pgClient)

	tokens, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token manager")
	}

	// Initialize services
	audit := services.NewSecurityAudit(securityRepo)
	rateGuard := services.NewRateGuard(rateLimiter, audit, metrics)
	today := services.NewTodayResolver(projectRepo, cfg.App.DefaultTimezone)

	appointmentService := services.NewAppointmentService(
		appointmentRepo,
		noteRepo,
		searchProvider,
		cacheProvider,
		eventBus,
		crm,
		today,
	)
	authService := services.NewAuthService(userRepo, tokens, audit)
	portalService := services.NewPortalService(projectRepo, portalSessions, audit, cfg.Portal.SessionTTL)
	importService := services.NewImportService(importRepo, eventBus, metrics)
	intakeService := services.NewIntakeSyncService(intakeSyncRepo, appointmentRepo, eventBus)
	projectService := services.NewProjectService(projectRepo, crm)
	notificationService := services.NewNotificationService(messageRepo, broadcaster)
	userAdminService := services.NewUserAdminService(userRepo, projectRepo, emailSender)
	functionService := services.NewFunctionService(invoker)
	leadService := services.NewLeadService(leadRepo)
	analyticsService := services.NewAnalyticsService(projectService, appointmentService)
	parseWorker := services.NewAutoParseWorker(
		appointmentRepo,
		invoker,
		eventBus,
		metrics,
		cfg.Worker.ParseFunction,
		cfg.Worker.AutoParseBatch,
		cfg.Worker.AutoParseInterval,
	)

	// Drop cached tab counts whenever appointments change
	cacheInvalidationService := services.NewCacheInvalidationService(cacheProvider, eventBus)
	if err := cacheInvalidationService.Start(); err != nil {
		log.Warn().Err(err).Msg("failed to start cache invalidation service")
	} else {
		defer cacheInvalidationService.Stop()
	}

	warmer := services.NewCacheWarmingService(projectService, appointmentService)
	go warmer.Run(ctx, cfg.Worker.CacheWarmInterval)

	// Initialize handlers
	loginPolicy := handlers.RatePolicy{Limit: cfg.RateLimit.LoginAttempts, Window: cfg.RateLimit.Window}
	portalPolicy := handlers.RatePolicy{Limit: cfg.RateLimit.PortalAttempts, Window: cfg.RateLimit.Window}

	router := routes.NewRouter(
		routes.Handlers{
			Health: handlers.NewHealthHandler(map[string]handlers.Pinger{
				"postgres": pgClient,
				"redis":    redisClient,
			}),
			Auth:         handlers.NewAuthHandler(authService, rateGuard, loginPolicy),
			Appointments: handlers.NewAppointmentHandler(appointmentService),
			Notes:        handlers.NewNoteHandler(appointmentService),
			Imports:      handlers.NewImportHandler(importService),
			Intake:       handlers.NewIntakeHandler(intakeService),
			Projects:     handlers.NewProjectHandler(projectService),
			Portal:       handlers.NewPortalHandler(portalService, appointmentService, rateGuard, portalPolicy),
			Notify:       handlers.NewNotificationHandler(notificationService),
			Leads:        handlers.NewLeadHandler(leadService),
			Admin:        handlers.NewAdminHandler(userAdminService, functionService, parseWorker, analyticsService),
		},
		authService,
		portalService,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}

	log.Info().Msg("server stopped")
}

// newBroadcaster fans team messages out to whichever channels are configured
func newBroadcaster(cfg config.NotifyConfig) *notifications.MultiNotifier {
	var slack, discord providers.Notifier
	if cfg.SlackWebhookURL != "" {
		slack = notifications.NewSlackNotifier(cfg.SlackWebhookURL)
	}
	if cfg.DiscordWebhookID != "" {
		notifier, err := notifications.NewDiscordNotifier(cfg.DiscordWebhookID, cfg.DiscordWebhookToken)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Discord notifier")
		} else {
			discord = notifier
		}
	}
	return notifications.NewMultiNotifier(slack, discord)
}
