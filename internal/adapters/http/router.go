package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// NewApp builds the fiber application with all API routes mounted.
func NewApp(h *DeploymentHandler, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "lighthouse",
		DisableStartupMessage: true,
	})
	app.Use(requestLogger(logger))

	v1 := app.Group("/api").Group("/v1")

	deployments := v1.Group("/deployments")
	deployments.Get("/", h.ListDeployments)
	deployments.Post("/", h.CreateDeployment)
	deployments.Delete("/:id", h.DeleteDeployment)

	containers := v1.Group("/containers")
	containers.Get("/", h.ListContainers)
	containers.Get("/:id/logs", h.GetContainerLogs)

	v1.Get("/proxy-config", h.GetProxyConfig)

	return app
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Info("request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"duration", time.Since(start),
		)
		return err
	}
}
