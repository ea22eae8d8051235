// Package app assembles repositories, services and background tasks from the
// loaded configuration. Both the HTTP server and podctl start from here.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pod_fulfillment_v1/internal/config"
	"pod_fulfillment_v1/internal/controller"
	"pod_fulfillment_v1/internal/middleware"
	"pod_fulfillment_v1/internal/model"
	"pod_fulfillment_v1/internal/provider"
	"pod_fulfillment_v1/internal/repository"
	"pod_fulfillment_v1/internal/router"
	"pod_fulfillment_v1/internal/service"
	"pod_fulfillment_v1/internal/task"
	"pod_fulfillment_v1/pkg/database"
	"pod_fulfillment_v1/pkg/net"
)

// ==================== dependency container ====================

type Repositories struct {
	Providers repository.ProviderRepository
	Catalog   repository.CatalogRepository
	Orders    repository.OrderRepository
}

type Services struct {
	Registry *service.RegistryService
	Guard    *service.PricingGuard
	Catalog  *service.CatalogService
	Carts    *service.CartService
	Quotes   *service.QuoteService
	Orders   *service.OrderService
	Tracking *service.TrackingService
}

type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Repos    *Repositories
	Services *Services
	Tasks    *task.TaskManager
	Limiter  *middleware.CooldownLimiter
	log      *zap.Logger
}

// Open connects to Postgres, migrates and wires everything on top.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.InitDB(database.Options{
		DSN:             cfg.Database.DSN(),
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogSQL:          cfg.Database.LogSQL,
	}, log, model.AllModels()...)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, db, log)
}

// New wires the services on an open database and loads the provider registry,
// seeding the built-in providers on a fresh database.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) (*App, error) {
	repos := &Repositories{
		Providers: repository.NewProviderRepository(db),
		Catalog:   repository.NewCatalogRepository(db),
		Orders:    repository.NewOrderRepository(db),
	}

	clients := provider.NewClientSet(net.NewDispatcher(), cfg.CredentialSource())
	rates := cfg.Rates()

	svc := &Services{
		Registry: service.NewRegistryService(repos.Providers, clients, log.Named("registry")),
		Guard: service.NewPricingGuard(service.PricingPolicy{
			MinimumMarginPct:  cfg.Pricing.MinimumMargin(),
			ShippingMarkupPct: cfg.Pricing.ShippingMarkup(),
		}),
	}
	if err := svc.Registry.SeedIfEmpty(ctx); err != nil {
		return nil, fmt.Errorf("load provider registry: %w", err)
	}

	svc.Catalog = service.NewCatalogService(svc.Registry, repos.Catalog, svc.Guard, rates,
		cfg.Catalog.SyncTimeout, log.Named("catalog"))
	svc.Carts = service.NewCartService(svc.Catalog, svc.Registry, svc.Guard, cfg.Cart.TTL, log.Named("cart"))
	svc.Quotes = service.NewQuoteService(svc.Registry, svc.Catalog, svc.Carts, svc.Guard, rates,
		service.QuoteServiceOptions{
			ProviderTimeout: cfg.Quote.ProviderTimeout,
			TTL:             cfg.Quote.TTL,
			Concurrency:     cfg.Quote.Concurrency,
		}, log.Named("quote"))
	svc.Orders = service.NewOrderService(repos.Orders, svc.Registry, svc.Carts, svc.Quotes, svc.Guard,
		cfg.Order.ProviderTimeout, cfg.Order.NumberPrefix, log.Named("order"))
	svc.Tracking = service.NewTrackingService(repos.Orders, svc.Registry,
		service.TrackingServiceOptions{
			ProviderTimeout: cfg.Tracking.ProviderTimeout,
			Concurrency:     cfg.Tracking.Concurrency,
		}, log.Named("tracking"))

	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		Tracking: svc.Tracking,
		Catalog:  svc.Catalog,
		Carts:    svc.Carts,
		Quotes:   svc.Quotes,
	}, &task.TaskManagerConfig{
		TrackingEnabled:   cfg.Tracking.Enabled,
		TrackingCron:      cfg.Tracking.Cron,
		TrackingBatchSize: cfg.Tracking.BatchSize,
		CatalogEnabled:    cfg.Catalog.SyncEnabled,
		CatalogCron:       cfg.Catalog.SyncCron,
		CatalogTimeout:    cfg.Catalog.SyncTimeout,
		CleanupCron:       task.DefaultConfig().CleanupCron,
	}, log)

	return &App{
		Config:   cfg,
		DB:       db,
		Repos:    repos,
		Services: svc,
		Tasks:    tasks,
		Limiter:  middleware.NewCooldownLimiter(),
		log:      log,
	}, nil
}

// Controllers builds the HTTP controllers over the services.
func (a *App) Controllers() router.Controllers {
	log := a.log.Named("http")
	return router.Controllers{
		Providers: controller.NewProviderController(a.Services.Registry, log),
		Catalog:   controller.NewCatalogController(a.Services.Catalog, log),
		Cart:      controller.NewCartController(a.Services.Carts, a.Services.Quotes, log),
		Orders:    controller.NewOrderController(a.Services.Orders, a.Services.Tracking, log),
		Admin:     controller.NewAdminController(a.Tasks, log),
	}
}

// RouterOptions maps the throttle settings onto the router.
func (a *App) RouterOptions() router.Options {
	return router.Options{
		AdminKey:        a.Config.Server.AdminKey,
		RefreshInterval: a.Config.Tracking.RefreshInterval,
		SyncInterval:    a.Config.Catalog.SyncInterval,
	}
}

// Handler is the HTTP engine with identity, access logging and every route.
func (a *App) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Identify(), middleware.AccessLog(a.log.Named("access")))
	router.InitRoutes(r, a.Controllers(), a.Limiter, a.RouterOptions())
	return r
}

// Close releases the database pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
