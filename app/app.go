package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/itbasis/go-clock"

	"github.com/bidhall/bidhall/internal/auction"
	"github.com/bidhall/bidhall/internal/catalog"
	"github.com/bidhall/bidhall/internal/config"
	"github.com/bidhall/bidhall/internal/credentials"
	"github.com/bidhall/bidhall/internal/events"
	"github.com/bidhall/bidhall/internal/handler"
	"github.com/bidhall/bidhall/internal/logger"
	"github.com/bidhall/bidhall/internal/ratelimit"
	"github.com/bidhall/bidhall/internal/registry"
	"github.com/bidhall/bidhall/internal/scheduler"
	"github.com/bidhall/bidhall/internal/storage"
)

// Expiry records are swept well below their TTL, so an hourly cadence is
// plenty.
const expirySweepInterval = time.Hour

type App struct {
	cfg    *config.Config
	logger *logger.Logger
	clock  clock.Clock

	store      *storage.Redis
	natsClient *events.Client
	publisher  *events.Publisher
	catalog    *catalog.Static

	credService     *credentials.Service
	chain           *credentials.Chain
	registryService registry.Service
	auctionService  auction.Service

	server    *fiber.App
	scheduler *scheduler.Scheduler

	cleanup []func() error
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		cfg:     cfg,
		clock:   clock.New(),
		cleanup: make([]func() error, 0),
	}

	app.initLogger()

	if err := app.initStorage(ctx); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if err := app.initNATS(ctx); err != nil {
		return nil, fmt.Errorf("failed to init nats client: %w", err)
	}

	if err := app.initCatalog(); err != nil {
		return nil, fmt.Errorf("failed to init catalog: %w", err)
	}

	app.initServices()

	if err := app.initServer(); err != nil {
		return nil, fmt.Errorf("failed to init http server: %w", err)
	}

	if err := app.initScheduler(); err != nil {
		return nil, fmt.Errorf("failed to init scheduler: %w", err)
	}

	return app, nil
}

func (a *App) initLogger() {
	format := "json"
	if a.cfg.Server.Environment == "development" {
		format = "console"
	}
	a.logger = logger.New(logger.Config{
		Level:       a.cfg.Server.LogLevel,
		Format:      format,
		ServiceName: "bidhall",
	})
}

func (a *App) initStorage(ctx context.Context) error {
	store, err := storage.NewRedis(a.cfg.Redis)
	if err != nil {
		return err
	}
	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}

	a.store = store
	a.cleanup = append(a.cleanup, store.Close)
	a.logger.Info("Connected to Redis", "address", a.cfg.Redis.Address)

	return nil
}

func (a *App) initNATS(ctx context.Context) error {
	if !a.cfg.NATS.Enabled {
		a.logger.Info("NATS disabled, events will not be published")
		return nil
	}

	client, err := events.NewClient(ctx, a.cfg.NATS, a.logger)
	if err != nil {
		return err
	}

	a.natsClient = client
	a.publisher = events.NewPublisher(client, a.logger)
	a.cleanup = append(a.cleanup, client.Close)
	a.logger.Info("Connected to NATS", "url", a.cfg.NATS.URL)

	return nil
}

func (a *App) initCatalog() error {
	cat, err := catalog.Load(a.cfg.Auction.CatalogPath)
	if err != nil {
		return err
	}

	a.catalog = cat
	a.logger.Info("Catalog loaded",
		"teams", len(cat.Teams()),
		"players", len(cat.Players()),
	)

	return nil
}

func (a *App) initServices() {
	a.credService = credentials.NewService(a.cfg.Auth, a.store, a.clock)
	a.chain = credentials.NewChain(a.credService)

	a.registryService = registry.NewService(
		a.store,
		a.credService,
		a.chain,
		a.publisher,
		a.clock,
		a.logger,
		a.cfg.Auction,
	)

	a.auctionService = auction.NewService(
		a.store,
		a.registryService,
		a.catalog,
		a.publisher,
		a.clock,
		a.logger,
	)
}

func (a *App) initServer() error {
	limiter := ratelimit.New(a.store, map[string]ratelimit.Rule{
		ratelimit.ActionTournamentCreate: {
			Limit:  a.cfg.RateLimit.CreateLimit,
			Window: a.cfg.RateLimit.CreateWindow,
		},
		ratelimit.ActionAuthAttempt: {
			Limit:  a.cfg.RateLimit.AuthLimit,
			Window: a.cfg.RateLimit.AuthWindow,
		},
	}, a.cfg.RateLimit.TTLSafetyMargin, a.cfg.RateLimit.FailOpenOnStoreErrs, a.clock, a.logger)

	a.server = fiber.New(fiber.Config{
		AppName:               "bidhall",
		DisableStartupMessage: true,
	})
	handler.New(a.registryService, a.auctionService, a.chain, limiter, a.logger).Register(a.server)

	return nil
}

func (a *App) initScheduler() error {
	sched, err := scheduler.New(a.registryService, expirySweepInterval, a.logger)
	if err != nil {
		return err
	}

	a.scheduler = sched
	a.cleanup = append(a.cleanup, sched.Stop)

	return nil
}

func (a *App) Start() {
	a.scheduler.Start()

	go func() {
		addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
		a.logger.Info("HTTP server listening", "address", addr)
		if err := a.server.Listen(addr); err != nil {
			a.logger.Fatal("Failed to serve", "error", err)
		}
	}()

	a.logger.Info("Application started successfully")
}

func (a *App) Stop() {
	a.logger.Info("Stopping application...")

	if a.server != nil {
		if err := a.server.ShutdownWithTimeout(10 * time.Second); err != nil {
			a.logger.Error("HTTP shutdown error", "error", err)
		}
	}

	for _, cleanup := range a.cleanup {
		if err := cleanup(); err != nil {
			a.logger.Error("Cleanup error", "error", err)
		}
	}

	a.logger.Info("Application stopped")
	_ = a.logger.Sync()
}
