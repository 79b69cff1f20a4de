package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"hyperion/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Oracle        OracleConfig
	Pricing       PricingConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"hyperion"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`

	// Address for the metrics/health HTTP listener
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"hyperion"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"hyperion"`
}

// OracleConfig controls quote freshness requirements for the price and IV feeds
type OracleConfig struct {
	// A quote older than StalenessThreshold fails with ErrOutOfSync
	StalenessThreshold time.Duration `envconfig:"ORACLE_STALENESS_THRESHOLD" default:"5m"`
	QuoteNamespace     string        `envconfig:"ORACLE_QUOTE_NAMESPACE" default:"oracle"`
}

// PricingConfig carries premium engine parameters
type PricingConfig struct {
	// Default implied volatility used for at-the-money lookups with no calibrated entry,
	// expressed at DefaultIVDecimals
	DefaultIV         string `envconfig:"PRICING_DEFAULT_IV" default:"180000"`
	DefaultIVDecimals int32  `envconfig:"PRICING_DEFAULT_IV_DECIMALS" default:"5"`

	// Transaction fee applied on top of the premium, basis points
	TransactionFeeBps int64 `envconfig:"PRICING_TRANSACTION_FEE_BPS" default:"100"`
	SettlementFeeBps  int64 `envconfig:"PRICING_SETTLEMENT_FEE_BPS" default:"100"`

	// Capability token required for manager-only settlement operations
	ManagerToken string `envconfig:"PRICING_MANAGER_TOKEN" required:"true"`

	// Capability token required for route administration
	AdminToken string `envconfig:"PRICING_ADMIN_TOKEN" required:"true"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for all background workers
type WorkerConfig struct {
	// Settlement workers
	ExpirySweepInterval  time.Duration `envconfig:"WORKER_EXPIRY_SWEEP_INTERVAL" default:"1m"`  // Settle expired options every minute
	DistributionInterval time.Duration `envconfig:"WORKER_DISTRIBUTION_INTERVAL" default:"1h"`  // Check for undistributed settled days hourly
	ExpirySweepEnabled   bool          `envconfig:"WORKER_EXPIRY_SWEEP_ENABLED" default:"true"`
	DistributionEnabled  bool          `envconfig:"WORKER_DISTRIBUTION_ENABLED" default:"true"`

	// Batch size for the expiry sweep; bounds the options settled per iteration
	ExpirySweepBatchSize int `envconfig:"WORKER_EXPIRY_SWEEP_BATCH_SIZE" default:"100"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
