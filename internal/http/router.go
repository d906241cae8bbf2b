package http

import (
	"time"

	"github.com/college-admin/backend/internal/config"
	"github.com/college-admin/backend/internal/http/handlers"
	"github.com/college-admin/backend/internal/metrics"
	"github.com/college-admin/backend/internal/middleware"
	"github.com/college-admin/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	userHandler *handlers.UserHandler,
	applicationHandler *handlers.ApplicationHandler,
	timelineHub *handlers.TimelineHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api/v1", middleware.AuthMiddleware(cfg, log))
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))

	api.Get("/me", userHandler.GetMe)

	metaHandler := handlers.NewMetaHandler()
	api.Get("/meta/actions", metaHandler.GetActions)
	api.Get("/meta/fields", metaHandler.GetFields)

	// Staff may read the timeline; every write is admin only. Registered
	// ahead of the admin group, whose middleware covers the whole prefix.
	api.Get("/applications/:id/activity", middleware.RequirePermission(rbac.PermViewActivity), applicationHandler.Activity)

	admin := api.Group("/applications", middleware.AdminMiddleware())
	admin.Get("/:id", applicationHandler.GetApplication)
	admin.Patch("/:id", applicationHandler.UpdateApplication)
	admin.Put("/:id/status", applicationHandler.UpdateStatus)
	admin.Put("/:id/qualifications", applicationHandler.UpdateQualifications)
	admin.Put("/:id/pending-qualifications", applicationHandler.UpdatePendingQualifications)
	admin.Put("/:id/work-experience", applicationHandler.UpdateWorkExperience)
	admin.Put("/:id/interview", applicationHandler.ScheduleInterview)
	admin.Put("/:id/interview/questions", applicationHandler.UpdateInterviewQuestions)
	admin.Put("/:id/payment-plan", applicationHandler.UpdatePaymentPlan)
	admin.Post("/:id/files", applicationHandler.AddFile)
	admin.Delete("/:id/files/:fileId", applicationHandler.DeleteFile)

	// WebSocket
	app.Get("/ws/activity/:id", timelineHub.Upgrade(), websocket.New(timelineHub.HandleWS))
}
