package bootstrap

import (
	"context"
	"net/http"
	"sync"

	chclient "hyperion/internal/adapters/clickhouse"
	"hyperion/internal/adapters/config"
	"hyperion/internal/adapters/kafka"
	pgclient "hyperion/internal/adapters/postgres"
	redisclient "hyperion/internal/adapters/redis"
	"hyperion/internal/consumers"
	"hyperion/internal/domain/fees"
	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pair"
	"hyperion/internal/domain/pool"
	"hyperion/internal/domain/volatility"
	"hyperion/internal/events"
	chrepo "hyperion/internal/repository/clickhouse"
	pgrepo "hyperion/internal/repository/postgres"
	redisrepo "hyperion/internal/repository/redis"
	allocatorsvc "hyperion/internal/services/allocator"
	liquiditysvc "hyperion/internal/services/liquidity"
	pricingsvc "hyperion/internal/services/pricing"
	settlementsvc "hyperion/internal/services/settlement"
	volatilitysvc "hyperion/internal/services/volatility"
	"hyperion/internal/workers"
	"hyperion/pkg/auth"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer (Data stores)
	PG    *pgclient.Client
	CH    *chclient.Client
	Redis *redisclient.Client

	// Domain Layer - Repositories
	Repos *Repositories

	// Domain Layer - Services
	Services *Services

	// External Adapters
	Adapters *Adapters

	// Background Processing
	Background *Background

	// Capability keeper and the engine's own manager capability
	Keeper     *auth.Keeper
	ManagerCap auth.Capability

	// Lifecycle management
	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Repositories groups all domain repositories
type Repositories struct {
	Pair       pair.Registry
	Option     option.Repository
	Pool       pool.Repository
	PoolUOW    pool.UnitOfWork
	SettleUOW  settlementsvc.UnitOfWork
	VolSurface volatility.Surface
	Fees       fees.Resolver
	Transfers  *pgrepo.TransferLedger
	Quotes     *redisrepo.QuoteRepository
	History    *chrepo.SettlementHistoryRepository
}

// Services groups all domain services
type Services struct {
	Volatility *volatilitysvc.Service // IV surface resolution and calibration
	Pricing    *pricingsvc.Service    // Premium quoting
	Allocator  *allocatorsvc.Service  // Pool route selection
	Liquidity  *liquiditysvc.Service  // Provider ledger and distribution
	Settlement *settlementsvc.Service // Lock/settlement controller
}

// Adapters groups all external adapters
type Adapters struct {
	KafkaProducer   *kafka.Producer
	HistoryConsumer *kafka.Consumer
	EventPublisher  *events.Publisher
}

// Background groups all background processing components
type Background struct {
	WorkerScheduler *workers.Scheduler
	HistorySvc      *consumers.SettlementHistoryConsumer
	MetricsServer   *http.Server
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Repos:      &Repositories{},
		Services:   &Services{},
		Adapters:   &Adapters{},
		Background: &Background{},
		Lifecycle:  NewLifecycle(),
		WG:         &sync.WaitGroup{},
		Context:    ctx,
		Cancel:     cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitRepositories()
	c.MustInitAdapters()
	c.MustInitServices()
	c.MustInitBackground()
}

// Start starts all background components
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	// Start the settlement history consumer
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Background.HistorySvc.Start(c.Context); err != nil && c.Context.Err() == nil {
			c.Log.Error("Settlement history consumer failed", "error", err)
		}
	}()

	// Start the metrics/health server
	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.Background.MetricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.Log.Errorf("Metrics server failed: %v", err)
			c.Cancel()
		}
	}()

	// Start background workers
	if err := c.Background.WorkerScheduler.Start(c.Context); err != nil {
		return errors.Wrap(err, "failed to start workers")
	}

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	c.Cancel()

	c.Lifecycle.Shutdown(
		c.WG,
		c.Background.MetricsServer,
		c.Background.WorkerScheduler,
		c.Adapters.KafkaProducer,
		c.Adapters.HistoryConsumer,
		c.PG,
		c.CH,
		c.Redis,
		c.ErrorTracker,
		c.Log,
	)
}
