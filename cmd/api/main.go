package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/college-admin/backend/internal/auditlog"
	"github.com/college-admin/backend/internal/config"
	"github.com/college-admin/backend/internal/db"
	"github.com/college-admin/backend/internal/events"
	apphttp "github.com/college-admin/backend/internal/http"
	"github.com/college-admin/backend/internal/http/handlers"
	"github.com/college-admin/backend/internal/metrics"
	"github.com/college-admin/backend/internal/repositories"
	"github.com/college-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	applicationRepo := repositories.NewApplicationRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Activity log
	auditMetrics := metrics.NewAudit(prometheus.DefaultRegisterer)
	normalizer := auditlog.NewNormalizer(cfg.Location())
	recorder := auditlog.NewRecorder(userRepo, auditRepo, normalizer, log,
		auditlog.WithPublisher(publisher),
		auditlog.WithMetrics(auditMetrics),
	)
	formatter := auditlog.NewFormatter(normalizer, cfg.TextTruncateLength)
	renderer := auditlog.NewRenderer(formatter, auditlog.DefaultSuppressedAdditions, auditMetrics, log)
	timeline := auditlog.NewTimeline(auditRepo, renderer, cfg.TimelinePageSize, cfg.TimelineMaxPage)

	// Services
	applicationService := services.NewApplicationService(applicationRepo, recorder, timeline, cfg, log)

	// Handlers
	userHandler := handlers.NewUserHandler(userRepo, log)
	applicationHandler := handlers.NewApplicationHandler(applicationService, log)
	timelineHub := handlers.NewTimelineHub(cfg, subscriber, log)

	if err := timelineHub.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to audit events", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(log),
	})

	apphttp.SetupRouter(app, cfg, log, rdb, userHandler, applicationHandler, timelineHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("timezone", cfg.Location().String()))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
