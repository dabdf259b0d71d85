// Package api serves the completion relay over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"relaybot/app/config"
	"relaybot/app/service/history"
	"relaybot/app/service/reply"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const serviceName = "Relaybot AI API"

type Service struct {
	app      *fiber.App
	resolver *reply.Resolver
	history  *history.Store
	backend  string
	validate *validator.Validate
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		do.MustInvoke[*reply.Resolver](di),
		cfg.Completion.Backend,
	), nil
}

func NewService(resolver *reply.Resolver, backend string) *Service {
	s := &Service{
		resolver: resolver,
		history:  resolver.History(),
		backend:  backend,
		validate: validator.New(),
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           time.Minute,
		WriteTimeout:          time.Minute,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(cors.New())
	app.Use(logRequests)

	app.Get("/", s.handleHome)
	app.Post("/chat", s.handleChatPost)
	app.Get("/chat", s.handleChatGet)
	app.Get("/history/:room_id", s.handleHistory)
	app.Post("/clear/:room_id", s.handleClear)
	app.Get("/modes", s.handleModes)
	app.Get("/health", s.handleHealth)
	app.Post("/manual-response", s.handleManualResponse)

	s.app = app

	return s
}

func (s *Service) App() *fiber.App {
	return s.app
}

// Listen blocks until the server stops.
func (s *Service) Listen(addr string) error {
	slog.Info("HTTP server listening", "addr", addr)

	return s.app.Listen(addr)
}

// Stop shuts the server down gracefully. Only the serve command calls it,
// the injector does not.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}

	return c.Status(code).JSON(ErrorResponse{Detail: err.Error()})
}

func logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	slog.Debug("HTTP request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"request_id", c.Locals(requestid.ConfigDefault.ContextKey),
		"duration", time.Since(start),
	)

	return err
}
