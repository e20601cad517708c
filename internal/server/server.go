package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/newsroom-service/internal/config"
	"github.com/fathima-sithara/newsroom-service/internal/handlers"
	"github.com/fathima-sithara/newsroom-service/internal/metrics"
	"github.com/fathima-sithara/newsroom-service/internal/middleware"
	"github.com/fathima-sithara/newsroom-service/internal/routes"
	"github.com/fathima-sithara/newsroom-service/internal/utils"
)

type Options struct {
	Authorizer middleware.Authorizer
	// LoginLimiter guards login and registration; nil disables it.
	LoginLimiter fiber.Handler
	// IPLimiter guards every API route; nil disables it.
	IPLimiter *middleware.IPRateLimiter
	Metrics   *metrics.Metrics
}

// New initializes the Fiber application with config, middlewares, and routes.
func New(cfg *config.Config, h *handlers.Handler, opts Options, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
		// multipart overhead on top of the largest accepted file
		BodyLimit:    int(cfg.S3.MaxUploadBytes) + 1<<20,
		ErrorHandler: errorHandler(logger),
	})

	// Global Middlewares
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{AllowCredentials: len(cfg.App.CORSOrigins) > 0, AllowOrigins: corsOrigins(cfg)}))
	app.Use(middleware.RequestLogger(logger, opts.Metrics))

	app.Get("/healthz", h.Health)
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	if opts.IPLimiter != nil {
		app.Use("/api", opts.IPLimiter.Handler())
	}
	routes.Setup(app, h, opts.Authorizer, opts.LoginLimiter)

	app.Use(func(c *fiber.Ctx) error {
		return utils.JSONError(c, fiber.StatusNotFound, "route not found")
	})
	return app
}

func corsOrigins(cfg *config.Config) string {
	if len(cfg.App.CORSOrigins) == 0 {
		return "*"
	}
	return strings.Join(cfg.App.CORSOrigins, ",")
}

// errorHandler renders errors that escape handlers in the API's JSON shape.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			logger.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return utils.JSONError(c, code, msg)
	}
}
