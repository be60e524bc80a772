package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/assetledger/internal/config"
	"github.com/congo-pay/assetledger/internal/events"
	"github.com/congo-pay/assetledger/internal/ledger"
	"github.com/congo-pay/assetledger/internal/logging"
	"github.com/congo-pay/assetledger/internal/metrics"
	"github.com/congo-pay/assetledger/internal/refcount"
	"github.com/congo-pay/assetledger/internal/routes"
	"github.com/congo-pay/assetledger/internal/storage"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	store  storage.Store
	ledger *ledger.Ledger
}

// New builds the ledger on Postgres when db is set (memory otherwise), with
// Redis backed references and event stream when cache is set, and delegates
// route wiring to routes.Setup.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	var store storage.Store
	if db != nil {
		pg := storage.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate ledger store: %w", err)
		}
		store = pg
	} else {
		logger.Warn("DATABASE_URL not set, ledger state is kept in memory")
		store = storage.NewMemory()
	}

	m := metrics.New()
	sinks := []events.Sink{events.NewLoggerSink(logging.Component(logger, "events")), m}
	refs := refcount.NewMemory()
	if cache != nil {
		refs = refcount.NewRedis(cache)
		sinks = append(sinks, events.NewRedisStreamSink(cache, cfg.EventStream, logger))
	}

	l := ledger.New(store,
		ledger.WithLogger(logging.Component(logger, "ledger")),
		ledger.WithReferenceCounter(refs),
		ledger.WithEventSink(events.Multi(sinks...)),
		ledger.WithMaxMetadataLength(cfg.MaxMetadataLength),
		ledger.WithStrictInvariants(cfg.StrictInvariants),
		ledger.WithReferenceFailureHook(m.ReferenceFailed),
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		UnescapePath: true,
	})

	deps := routes.Deps{Cfg: cfg, Ledger: l, Store: store, Cache: cache, Metrics: m, Logger: logger}
	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, store: store, ledger: l}, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
