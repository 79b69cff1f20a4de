package metrics

import (
	"context"
	"time"

	"hyperion/pkg/logger"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolCollector collects pool and option aggregates from postgres
type PoolCollector struct {
	log      *logger.Logger
	postgres *sqlx.DB

	// Descriptors
	poolTotalBalance  *prometheus.Desc
	poolLockedBalance *prometheus.Desc
	optionsByStatus   *prometheus.Desc
	activeProviders   *prometheus.Desc
}

// NewPoolCollector creates a new pool aggregates collector
func NewPoolCollector(log *logger.Logger, postgres *sqlx.DB) *PoolCollector {
	return &PoolCollector{
		log:      log,
		postgres: postgres,

		poolTotalBalance: prometheus.NewDesc(
			"hyperion_pool_total_balance",
			"Pool total balance in quote-asset units",
			[]string{"pool_id", "option_type"}, nil,
		),
		poolLockedBalance: prometheus.NewDesc(
			"hyperion_pool_locked_balance",
			"Pool locked collateral in quote-asset units",
			[]string{"pool_id", "option_type"}, nil,
		),
		optionsByStatus: prometheus.NewDesc(
			"hyperion_options",
			"Number of options by status",
			[]string{"status"}, nil,
		),
		activeProviders: prometheus.NewDesc(
			"hyperion_liquidity_providers",
			"Number of distinct liquidity providers with positions",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.poolTotalBalance
	ch <- c.poolLockedBalance
	ch <- c.optionsByStatus
	ch <- c.activeProviders
}

// Collect implements prometheus.Collector
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectPoolBalances(ctx, ch)
	c.collectOptionStats(ctx, ch)
	c.collectProviderCount(ctx, ch)
}

func (c *PoolCollector) collectPoolBalances(ctx context.Context, ch chan<- prometheus.Metric) {
	type PoolBalance struct {
		ID     string  `db:"id"`
		Type   string  `db:"option_type"`
		Total  float64 `db:"total_balance"`
		Locked float64 `db:"locked_balance"`
	}

	var pools []PoolBalance
	err := c.postgres.SelectContext(ctx, &pools, `
		SELECT id, option_type, total_balance, locked_balance
		FROM pools
	`)
	if err != nil {
		c.log.Error("Failed to collect pool balance metrics", "error", err)
		return
	}

	for _, p := range pools {
		ch <- prometheus.MustNewConstMetric(
			c.poolTotalBalance,
			prometheus.GaugeValue,
			p.Total,
			p.ID, p.Type,
		)
		ch <- prometheus.MustNewConstMetric(
			c.poolLockedBalance,
			prometheus.GaugeValue,
			p.Locked,
			p.ID, p.Type,
		)
	}
}

func (c *PoolCollector) collectOptionStats(ctx context.Context, ch chan<- prometheus.Metric) {
	type OptionStat struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}

	var stats []OptionStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT status, COUNT(*) as count
		FROM options
		GROUP BY status
	`)
	if err != nil {
		c.log.Error("Failed to collect option stats", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.optionsByStatus,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Status,
		)
	}
}

func (c *PoolCollector) collectProviderCount(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	err := c.postgres.GetContext(ctx, &count, "SELECT COUNT(DISTINCT provider) FROM provider_positions")
	if err != nil {
		c.log.Error("Failed to collect provider count metric", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.activeProviders,
		prometheus.GaugeValue,
		float64(count),
	)
}

// RegisterPoolCollector registers the pool aggregates collector
func RegisterPoolCollector(collector *PoolCollector) {
	prometheus.MustRegister(collector)
}
