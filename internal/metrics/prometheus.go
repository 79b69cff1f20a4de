package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperion_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyperion_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hyperion_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Pricing metrics
	PremiumsQuoted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperion_premiums_quoted_total",
			Help: "Total number of premium quotes by option type and status",
		},
		[]string{"type", "status"}, // status: success|error
	)

	QuoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hyperion_quote_latency_seconds",
			Help:    "Premium quote latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"type"},
	)

	// Settlement metrics
	OptionsLocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperion_options_locked_total",
			Help: "Total number of option collateral locks by type",
		},
		[]string{"type"},
	)

	OptionsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperion_options_settled_total",
			Help: "Total number of settled options by outcome",
		},
		[]string{"outcome"}, // outcome: exercised|expired
	)

	SettlementPayouts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hyperion_settlement_payouts_sum",
			Help: "Cumulative exercise payouts in quote-asset units",
		},
	)

	// Liquidity metrics
	LiquidityDeposited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hyperion_liquidity_deposited_sum",
			Help: "Cumulative deposits in quote-asset units",
		},
	)

	LiquidityWithdrawn = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hyperion_liquidity_withdrawn_sum",
			Help: "Cumulative withdrawals in quote-asset units",
		},
	)

	PremiumDistributed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hyperion_premium_distributed_sum",
			Help: "Cumulative premium credited to providers in quote-asset units",
		},
	)

	// Oracle metrics
	OracleReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperion_oracle_reads_total",
			Help: "Total oracle quote reads by feed and status",
		},
		[]string{"feed", "status"}, // feed: price|iv, status: success|stale|missing|error
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperion_kafka_messages_total",
			Help: "Total Kafka messages produced/consumed",
		},
		[]string{"topic", "direction", "status"}, // direction: produced|consumed
	)

	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hyperion_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|clickhouse|redis
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// Pricing metrics
	prometheus.MustRegister(PremiumsQuoted)
	prometheus.MustRegister(QuoteLatency)

	// Settlement metrics
	prometheus.MustRegister(OptionsLocked)
	prometheus.MustRegister(OptionsSettled)
	prometheus.MustRegister(SettlementPayouts)

	// Liquidity metrics
	prometheus.MustRegister(LiquidityDeposited)
	prometheus.MustRegister(LiquidityWithdrawn)
	prometheus.MustRegister(PremiumDistributed)

	// Oracle metrics
	prometheus.MustRegister(OracleReads)

	// System metrics
	prometheus.MustRegister(KafkaMessages)
	prometheus.MustRegister(DBQueries)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
}
