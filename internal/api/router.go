package api

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	config "github.com/maheshrc27/socialdeck/configs"
	"github.com/maheshrc27/socialdeck/internal/api/handlers"
	"github.com/maheshrc27/socialdeck/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Posts     *handlers.PostHandler
	Platforms *handlers.PlatformHandler
	Scheduler *handlers.SchedulerHandler
}

func NewApp(cfg config.Config, h Handlers) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           10 * time.Minute,
		WriteTimeout:          10 * time.Minute,
		BodyLimit:             100 * 1024 * 1024, // 100 MB
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code == fiber.StatusInternalServerError {
				slog.Error("request failed", "path", c.Path(), "error", err)
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	corsConfig := cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}
	if cfg.FrontendURL == "" {
		// credentials cannot be combined with a wildcard origin
		corsConfig.AllowOrigins = "*"
		corsConfig.AllowCredentials = false
	}
	app.Use(cors.New(corsConfig))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authMiddleware := middleware.NewAuthMiddleware(cfg)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Post("/posts", h.Posts.CreatePost)
	api.Get("/posts", h.Posts.ListPosts)
	api.Post("/posts/remove", h.Posts.RemovePost)
	api.Post("/posts/:id/schedule", h.Posts.SchedulePost)
	api.Post("/posts/:id/unschedule", h.Posts.UnschedulePost)
	api.Post("/posts/:id/resubmit", h.Posts.ResubmitPost)
	api.Post("/posts/:id/publish", h.Posts.PublishPost)
	api.Get("/posts/:id/history", h.Posts.PostHistory)
	api.Get("/history", h.Posts.UserHistory)

	// social accounts api routes
	api.Get("/accounts", h.Platforms.ListSocialAccounts)
	api.Post("/accounts/remove", h.Platforms.DeleteSocialAccount)

	api.Get("/scheduler/status", h.Scheduler.Status)
	api.Post("/scheduler/check", h.Scheduler.Check)

	return app
}
