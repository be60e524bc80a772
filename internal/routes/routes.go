package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/assetledger/internal/assets"
	"github.com/congo-pay/assetledger/internal/config"
	"github.com/congo-pay/assetledger/internal/ledger"
	"github.com/congo-pay/assetledger/internal/metrics"
	"github.com/congo-pay/assetledger/internal/middleware"
	"github.com/congo-pay/assetledger/internal/storage"
)

const mutationsPerMinute = 600

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	Ledger  *ledger.Ledger
	Store   storage.Store
	Cache   *redis.Client
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Ledger == nil {
		return fmt.Errorf("ledger is required")
	}
	if !d.Cfg.IsDevelopment() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		RegisterMetricsRoute(app, d.Metrics)
	}

	api := app.Group("/api/v1",
		middleware.Origin(),
		middleware.MutationRateLimit(d.Cache, mutationsPerMinute, d.Logger),
		middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger),
	)
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDOf(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var failures assets.FailureRecorder
	if d.Metrics != nil {
		failures = d.Metrics
	}
	RegisterAssetRoutes(api, assets.NewHandler(d.Ledger, failures))

	return nil
}
