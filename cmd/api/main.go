package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sla-tracker/internal/api/http"
	"github.com/spec-kit/sla-tracker/internal/api/http/handlers"
	"github.com/spec-kit/sla-tracker/internal/auth"
	"github.com/spec-kit/sla-tracker/internal/clock"
	"github.com/spec-kit/sla-tracker/internal/config"
	"github.com/spec-kit/sla-tracker/internal/events"
	"github.com/spec-kit/sla-tracker/internal/notify"
	"github.com/spec-kit/sla-tracker/internal/observability"
	"github.com/spec-kit/sla-tracker/internal/persistence"
	"github.com/spec-kit/sla-tracker/internal/repository"
	"github.com/spec-kit/sla-tracker/internal/service"
	"github.com/spec-kit/sla-tracker/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	zoneClock, err := clock.NewZoneClock(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier := notify.NewFromConfig(cfg.Mail, logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	policyRepo := repository.NewSlaPolicyRepository(pool)
	personRepo := repository.NewPersonRepository(pool)
	roleTagRepo := repository.NewRoleTagRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)

	authService := service.NewAuthService(cfg.Auth, userRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	alertService := service.NewAlertService(service.AlertDependencies{
		AlertRepo:       alertRepo,
		RequestRepo:     requestRepo,
		PolicyRepo:      policyRepo,
		PersonRepo:      personRepo,
		Notifier:        notifier,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
		Logger:          logger,
		DigestRecipient: cfg.Mail.DigestRecipient,
	})
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestRepo: requestRepo,
		PolicyRepo:  policyRepo,
		PersonRepo:  personRepo,
		RoleTagRepo: roleTagRepo,
		Alerts:      alertService,
		Dispatcher:  dispatcher,
		Clock:       zoneClock,
		Logger:      logger,
	})
	ingestionService := service.NewIngestionService(service.IngestionDependencies{
		RequestRepo: requestRepo,
		PolicyRepo:  policyRepo,
		PersonRepo:  personRepo,
		RoleTagRepo: roleTagRepo,
		Cache:       redis,
		Dispatcher:  dispatcher,
		Clock:       zoneClock,
		Metrics:     metrics,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Mail)
	notificationService.RegisterHandlers()

	if cfg.Scheduler.Enabled {
		target, _ := cfg.Scheduler.Target()
		scheduler := worker.NewScheduler(zoneClock, target, cfg.Scheduler.Tolerance(), cfg.Scheduler.PollInterval(), metrics, logger)
		scheduler.Register("sla-recompute", func(ctx context.Context, today time.Time) error {
			_, err := requestService.DailyRecompute(ctx, today)
			return err
		})
		scheduler.Register("alert-digest", alertService.SendDailyDigest)
		go scheduler.Start(ctx)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService),
		Requests:       handlers.NewRequestsHandler(requestService),
		Ingestion:      handlers.NewIngestionHandler(ingestionService),
		Alerts:         handlers.NewAlertsHandler(alertService),
		Catalog:        handlers.NewCatalogHandler(policyRepo, personRepo, roleTagRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
