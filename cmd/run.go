package cmd

import (
	"context"
	"fmt"
	"time"

	"cubeduel/application"
	"cubeduel/bot"
	"cubeduel/bot/features/cube"
	"cubeduel/config"
	"cubeduel/database"
	"cubeduel/events"
	"cubeduel/guard"
	"cubeduel/httpapi"
	"cubeduel/infrastructure"
	"cubeduel/infrastructure/observability"
	"cubeduel/repository"
	"cubeduel/service"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.Info("Starting cube duel bot...")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.Subscribe(eventBus)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics")
		}
	}()

	// Forward domain events to NATS when configured
	if cfg.NATSServers != "" {
		natsClient, err := connectEventForwarding(ctx, cfg, eventBus, metrics)
		if err != nil {
			return err
		}
		defer natsClient.Close()
	}

	// Initialize duel guards
	throwGuard, cooldowns, closeGuards, err := newGuards(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGuards()

	// Initialize services
	userService := service.NewUserService(uowFactory, cfg.StartingStars)
	settingsService := service.NewGameSettingsService(uowFactory)
	statsService := service.NewStatsService(uowFactory, cfg.Cube.DefaultCommission)
	cleanupService := service.NewCleanupService(uowFactory)
	cubeGameService := service.NewCubeGameService(uowFactory, cfg.Cube, throwGuard, cooldowns, service.NewTurnScheduler())
	defer cubeGameService.Shutdown()

	restored, err := cubeGameService.RestoreTurnTimers(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore turn timers: %w", err)
	}
	log.WithField("matches", restored).Info("Turn timers restored for in-progress matches")

	// Start the canceled table sweep
	cleanupWorker := application.NewCleanupWorker(cleanupService, cfg.Cube.CleanupSchedule, cfg.Cube.CanceledRetention)
	stopCleanup, err := cleanupWorker.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start cleanup worker: %w", err)
	}
	defer stopCleanup()

	// Start the ops API
	if cfg.OpsAPIPort != 0 {
		handler := httpapi.NewHandler(cubeGameService, statsService, settingsService, userService, cfg.OpsAPIToken)
		server := httpapi.NewServer(cfg.OpsAPIPort, handler)
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.WithError(err).Error("Error shutting down ops API")
			}
		}()
	}

	// Initialize Telegram bot
	log.Info("Initializing Telegram bot...")
	botConfig := bot.Config{
		Token: cfg.TelegramToken,
		Cube: cube.Config{
			TableWagers: cfg.Cube.TableWagers,
			TurnTimeout: cfg.Cube.TurnTimeout,
			ThrowPacing: cfg.Cube.ThrowPacing,
		},
		DefaultCommission: cfg.Cube.DefaultCommission,
		IsAdmin:           cfg.IsAdmin,
	}
	telegramBot, err := bot.New(botConfig, userService, cubeGameService, statsService, settingsService, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	telegramBot.Start()

	// Wait for context cancellation
	log.WithField("environment", cfg.Environment).Info("Bot is running")
	<-ctx.Done()

	log.Info("Shutting down bot...")
	if err := telegramBot.Close(); err != nil {
		log.WithError(err).Error("Error closing Telegram bot")
	}
	return nil
}

// ConfigureLogging applies the configured logrus level and format
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func connectEventForwarding(ctx context.Context, cfg *config.Config, eventBus *events.Bus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	log.WithField("servers", cfg.NATSServers).Info("Connecting to NATS...")
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureDomainEventStream(natsClient, mapper); err != nil {
		natsClient.Close()
		return nil, fmt.Errorf("failed to ensure domain event stream: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(natsClient, mapper)
	publisher.OnPublished(func(eventType events.EventType) {
		metrics.RecordNATSMessagePublished(string(eventType))
	})
	publisher.Forward(eventBus)

	log.Info("Domain events are forwarded to NATS")
	return natsClient, nil
}

// newGuards builds the throw guard and rejoin cooldown store for the configured backend
func newGuards(ctx context.Context, cfg *config.Config) (service.ThrowGuard, service.CooldownStore, func(), error) {
	if cfg.GuardBackend != "redis" {
		return guard.NewMemoryThrowGuard(), guard.NewMemoryCooldowns(cfg.Cube.RejoinCooldown), func() {}, nil
	}

	client, err := guard.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, nil, err
	}
	// A throw can never legitimately outlive its turn
	ttl := cfg.Cube.TurnTimeout + cfg.Cube.ThrowPacing
	closeClient := func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Error("Error closing Redis client")
		}
	}
	return guard.NewRedisThrowGuard(client, ttl), guard.NewRedisCooldowns(client, cfg.Cube.RejoinCooldown), closeClient, nil
}
