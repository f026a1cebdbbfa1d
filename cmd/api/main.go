package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/health-records-service/internal/api/http"
	"github.com/spec-kit/health-records-service/internal/api/http/handlers"
	"github.com/spec-kit/health-records-service/internal/auth"
	"github.com/spec-kit/health-records-service/internal/cache"
	"github.com/spec-kit/health-records-service/internal/config"
	"github.com/spec-kit/health-records-service/internal/events"
	"github.com/spec-kit/health-records-service/internal/observability"
	"github.com/spec-kit/health-records-service/internal/persistence"
	"github.com/spec-kit/health-records-service/internal/repository"
	"github.com/spec-kit/health-records-service/internal/service"
	"github.com/spec-kit/health-records-service/internal/storage"
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

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	medicalRecordRepo := repository.NewMedicalRecordRepository(pool)
	labReportRepo := repository.NewLabReportRepository(pool)

	fileStore, err := storage.NewFileStore(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Fatal("failed to init file store", zap.Error(err))
	}

	var counter cache.UnreadCounter
	if cfg.Cache.Backend == "redis" {
		counter = cache.NewRedisCounter(redis.Client, cfg.Cache.TTL(), logger)
	} else {
		counter = cache.NewMemoryCounter(cfg.Cache.TTL())
	}

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg.Auth, userRepo)
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, counter, logger)
	appointmentService := service.NewAppointmentService(appointmentRepo, userRepo, notificationService, dispatcher, logger)
	medicalRecordService := service.NewMedicalRecordService(medicalRecordRepo, userRepo, logger)
	labReportService := service.NewLabReportService(labReportRepo, medicalRecordRepo, userRepo, fileStore, logger)
	notificationService.RegisterHandlers(dispatcher)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo, logger, cfg.CORS.AllowedOrigin)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	app.Use(httptransport.CORSMiddleware(cfg.CORS.AllowedOrigin))
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Appointments:   handlers.NewAppointmentsHandler(appointmentService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		MedicalRecords: handlers.NewMedicalRecordsHandler(medicalRecordService),
		LabReports:     handlers.NewLabReportsHandler(labReportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
