package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/parley-hq/parley/pkg/assistant"
	"github.com/parley-hq/parley/pkg/calendar"
	"github.com/parley-hq/parley/pkg/cmd"
	"github.com/parley-hq/parley/pkg/log"
	"github.com/parley-hq/parley/pkg/otelhelper"
	"github.com/parley-hq/parley/pkg/services"
	"github.com/parley-hq/parley/pkg/session"
)

const defaultPort = 9080

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "parley-api",
		Usage:                 "Conversational meeting scheduling API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "session-store",
				Usage:   "Session store URL (redis://, postgres://; empty for in-memory)",
				Sources: cli.EnvVars("SESSION_STORE_URL"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "Idle lifetime of conversation sessions",
				Value:   session.DefaultTTL,
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka; empty for in-process)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "assistant-url",
				Usage:    "Base URL of the AI assistant service",
				Required: true,
				Sources:  cli.EnvVars("ASSISTANT_URL"),
			},
			&cli.StringFlag{
				Name:     "calendar-url",
				Usage:    "Base URL of the calendar service",
				Required: true,
				Sources:  cli.EnvVars("CALENDAR_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Parley API")

			store, err := cmd.NewSessionStore(ctx, logger,
				command.String("session-store"), command.Duration("session-ttl"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close session store", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			assistantClient := assistant.NewClient(command.String("assistant-url"),
				assistant.WithLogger(logger))
			calendarClient := calendar.NewClient(command.String("calendar-url"),
				calendar.WithLogger(logger))

			var opts []services.ConversationOption

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "parley-api")
				if err != nil {
					return err
				}

				opts = append(opts, services.WithTracer(tracer))
			}

			conversations := services.NewConversation(
				store,
				assistantClient,
				calendarClient,
				eventBus,
				logger,
				opts...,
			)

			api := NewAPI(logger, conversations)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("Parley API exited", "error", err)
		os.Exit(1)
	}
}
