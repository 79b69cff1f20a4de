package bootstrap

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	chclient "hyperion/internal/adapters/clickhouse"
	"hyperion/internal/adapters/config"
	errnoop "hyperion/internal/adapters/errors/noop"
	"hyperion/internal/adapters/errors/sentry"
	"hyperion/internal/adapters/kafka"
	pgclient "hyperion/internal/adapters/postgres"
	redisclient "hyperion/internal/adapters/redis"
	"hyperion/internal/consumers"
	"hyperion/internal/events"
	"hyperion/internal/metrics"
	chrepo "hyperion/internal/repository/clickhouse"
	pgrepo "hyperion/internal/repository/postgres"
	redisrepo "hyperion/internal/repository/redis"
	allocatorsvc "hyperion/internal/services/allocator"
	liquiditysvc "hyperion/internal/services/liquidity"
	pricingsvc "hyperion/internal/services/pricing"
	settlementsvc "hyperion/internal/services/settlement"
	volatilitysvc "hyperion/internal/services/volatility"
	"hyperion/internal/workers"
	optionworkers "hyperion/internal/workers/options"
	"hyperion/pkg/auth"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	// Initialize error tracker
	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	// Initialize metrics registry
	metrics.Init()

	// Capability keeper; the engine holds its own manager capability for
	// the background workers
	c.Keeper = auth.NewKeeper(map[auth.Role]string{
		auth.RoleManager: cfg.Pricing.ManagerToken,
		auth.RoleAdmin:   cfg.Pricing.AdminToken,
	})
	c.ManagerCap, err = c.Keeper.Grant(auth.RoleManager, cfg.Pricing.ManagerToken)
	if err != nil {
		panic("failed to grant manager capability: " + err.Error())
	}
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure initializes data stores (Postgres, ClickHouse, Redis)
func (c *Container) MustInitInfrastructure() {
	var err error

	// PostgreSQL
	c.Log.Info("Connecting to PostgreSQL...")
	c.PG, err = pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		c.Log.Fatalf("failed to connect postgres: %v", err)
	}
	c.Log.Info("✓ PostgreSQL connected")

	// ClickHouse
	c.Log.Info("Connecting to ClickHouse...")
	c.CH, err = chclient.NewClient(c.Config.ClickHouse)
	if err != nil {
		c.Log.Fatalf("failed to connect clickhouse: %v", err)
	}
	c.Log.Info("✓ ClickHouse connected")

	// Redis
	c.Log.Info("Connecting to Redis...")
	c.Redis, err = redisclient.NewClient(c.Config.Redis)
	if err != nil {
		c.Log.Fatalf("failed to connect redis: %v", err)
	}
	c.Log.Info("✓ Redis connected")
}

// ========================================
// Phase 3: Domain Layer - Repositories
// ========================================

// MustInitRepositories initializes all domain repositories
func (c *Container) MustInitRepositories() {
	db := c.PG.DB()

	c.Repos.Pair = pgrepo.NewPairRepository(db)
	c.Repos.Option = pgrepo.NewOptionRepository(db)
	c.Repos.Pool = pgrepo.NewPoolRepository(db)
	c.Repos.PoolUOW = pgrepo.NewPoolUnitOfWork(db)
	c.Repos.SettleUOW = pgrepo.NewSettlementUnitOfWork(db)
	c.Repos.VolSurface = pgrepo.NewVolSurfaceRepository(db)
	c.Repos.Fees = pgrepo.NewFeeRepository(db,
		c.Config.Pricing.TransactionFeeBps,
		c.Config.Pricing.SettlementFeeBps,
	)
	c.Repos.Transfers = pgrepo.NewTransferLedger(db)

	c.Repos.Quotes = redisrepo.NewQuoteRepository(
		c.Redis.Client(),
		c.Config.Oracle.QuoteNamespace,
		c.Config.Oracle.StalenessThreshold,
	)

	c.Repos.History = chrepo.NewSettlementHistoryRepository(c.CH.Conn())

	c.Log.Info("✓ Repositories initialized")
}

// ========================================
// Phase 4: External Adapters
// ========================================

// MustInitAdapters initializes Kafka producer, consumers and event publisher
func (c *Container) MustInitAdapters() {
	c.Adapters.KafkaProducer = provideKafkaProducer(c.Config, c.Log)
	c.Adapters.EventPublisher = events.NewPublisher(c.Adapters.KafkaProducer, c.Log.With("component", "events"))

	c.Adapters.HistoryConsumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: c.Config.Kafka.Brokers,
		GroupID: c.Config.Kafka.GroupID + ".history",
		Topics: []string{
			events.TopicOptionBought,
			events.TopicOptionLocked,
			events.TopicOptionExercised,
			events.TopicOptionExpired,
			events.TopicPremiumDistributed,
		},
	})

	c.Log.Info("✓ Adapters initialized")
}

// ========================================
// Phase 5: Domain Layer - Services
// ========================================

// MustInitServices wires the pricing and settlement services
func (c *Container) MustInitServices() {
	defaultIV, err := decimal.NewFromString(c.Config.Pricing.DefaultIV)
	if err != nil {
		c.Log.Fatalf("invalid default IV %q: %v", c.Config.Pricing.DefaultIV, err)
	}

	c.Services.Volatility = volatilitysvc.NewService(
		c.Repos.VolSurface,
		defaultIV,
		c.Config.Pricing.DefaultIVDecimals,
		c.Config.Oracle.StalenessThreshold,
		c.Log.With("service", "volatility"),
	)

	c.Services.Pricing = pricingsvc.NewService(
		c.Repos.Pair,
		c.Repos.Quotes,
		c.Services.Volatility,
		c.Repos.Fees,
		c.Log.With("service", "pricing"),
	)

	c.Services.Allocator = allocatorsvc.NewService(
		c.Repos.Pool,
		c.Keeper,
		c.Log.With("service", "allocator"),
	)

	c.Services.Liquidity = liquiditysvc.NewService(
		c.Repos.PoolUOW,
		c.Log.With("service", "liquidity"),
	)

	c.Services.Settlement = settlementsvc.NewService(
		c.Repos.SettleUOW,
		c.Repos.Option,
		c.Services.Allocator,
		c.Services.Pricing,
		c.Repos.Quotes,
		c.Repos.Fees,
		c.Repos.Transfers,
		c.Repos.Transfers,
		c.Keeper,
		c.Adapters.EventPublisher,
		c.Log.With("service", "settlement"),
	)

	c.Log.Info("✓ Services initialized")
}

// ========================================
// Phase 6: Background Processing
// ========================================

// MustInitBackground wires workers, consumers and the metrics server
func (c *Container) MustInitBackground() {
	wcfg := c.Config.Workers

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(optionworkers.NewExpirySweeper(
		c.Services.Settlement,
		c.ManagerCap,
		wcfg.ExpirySweepBatchSize,
		wcfg.ExpirySweepInterval,
		wcfg.ExpirySweepEnabled,
	))
	scheduler.RegisterWorker(optionworkers.NewPremiumDistributor(
		c.Services.Liquidity,
		c.Repos.Pool,
		c.Adapters.EventPublisher,
		wcfg.DistributionInterval,
		wcfg.DistributionEnabled,
	))
	c.Background.WorkerScheduler = scheduler

	c.Background.HistorySvc = consumers.NewSettlementHistoryConsumer(
		c.Adapters.HistoryConsumer,
		c.Repos.History,
		c.Log.With("consumer", "settlement_history"),
	)

	metrics.RegisterPoolCollector(metrics.NewPoolCollector(c.Log, c.PG.DB()))
	c.Background.MetricsServer = provideMetricsServer(c)

	c.Log.Info("✓ Background components initialized")
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideKafkaProducer(cfg *config.Config, log *logger.Logger) *kafka.Producer {
	log.Info("Initializing Kafka producer...")
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn("Kafka brokers not configured, using default localhost:9092")
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}

	return kafka.NewProducer(kafka.ProducerConfig{
		Brokers: cfg.Kafka.Brokers,
	})
}

func provideMetricsServer(c *Container) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := c.PG.Health(ctx); err != nil {
			http.Error(w, "postgres: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := c.Redis.Health(ctx); err != nil {
			http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := c.CH.Health(ctx); err != nil {
			http.Error(w, "clickhouse: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/health/workers", func(w http.ResponseWriter, r *http.Request) {
		type workerStatus struct {
			LastRun     time.Time `json:"last_run"`
			LastError   string    `json:"last_error,omitempty"`
			RunCount    int64     `json:"run_count"`
			ErrorCount  int64     `json:"error_count"`
			AvgDuration string    `json:"avg_duration"`
			IsRunning   bool      `json:"is_running"`
			Enabled     bool      `json:"enabled"`
		}

		statuses := make(map[string]workerStatus)
		for name, h := range c.Background.WorkerScheduler.Registry().GetAllHealth() {
			status := workerStatus{
				LastRun:     h.LastRun,
				RunCount:    h.RunCount,
				ErrorCount:  h.ErrorCount,
				AvgDuration: h.AvgDuration.String(),
				IsRunning:   h.IsRunning,
				Enabled:     h.Enabled,
			}
			if h.LastError != nil {
				status.LastError = h.LastError.Error()
			}
			statuses[name] = status
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statuses)
	})

	return &http.Server{
		Addr:              c.Config.App.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
