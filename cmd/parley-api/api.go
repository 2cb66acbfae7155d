// Package main provides the Parley API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/parley-hq/parley/pkg/services"
	"github.com/parley-hq/parley/pkg/web"
)

type API struct {
	logger        *slog.Logger
	conversations *services.Conversation
	validate      *validator.Validate
}

func NewAPI(logger *slog.Logger, conversations *services.Conversation) *API {
	return &API{
		logger:        logger,
		conversations: conversations,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.conversations, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Parley API")
	})

	conversations := app.Group("/conversations")
	conversations.Post("/messages", handlers.PostMessage)
	conversations.Post("/interactions", handlers.PostInteraction)
	conversations.Get("/:id", handlers.GetConversation)
	conversations.Delete("/:id", handlers.DeleteConversation)
	conversations.Post("/:id/advance", handlers.AdvanceWorkflow)

	app.Get("/email-jobs/:jobId", handlers.EmailJobStatus)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
