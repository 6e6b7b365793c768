package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/insport-app/auth-service/internal/config"
	"github.com/insport-app/auth-service/internal/handlers"
	"github.com/insport-app/auth-service/internal/middlewares"
	"github.com/insport-app/auth-service/internal/routes"
)

// New initializes the Fiber application with config, middlewares, and routes.
func New(cfg *config.Config, h *handlers.Handler, logger *zap.SugaredLogger) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
	})

	app.Use(cors.New())
	app.Use(middlewares.RequestLogger(logger))
	app.Use(middlewares.NewIPRateLimiter(cfg.App.RatePerIP, logger).Handler())

	routes.Setup(app, h)

	return app
}
