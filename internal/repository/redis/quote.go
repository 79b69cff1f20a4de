package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"hyperion/internal/domain/oracle"
	"hyperion/internal/metrics"
	"hyperion/pkg/errors"
)

// Compile-time check
var _ oracle.PriceSource = (*QuoteRepository)(nil)

// QuoteRepository reads oracle spot quotes from Redis
// An off-engine feeder writes the aggregator answers; the engine only reads
// and enforces freshness
type QuoteRepository struct {
	client    *redis.Client
	namespace string
	threshold time.Duration

	// Injected for tests
	now func() time.Time
}

// NewQuoteRepository creates a new oracle quote repository
func NewQuoteRepository(client *redis.Client, namespace string, stalenessThreshold time.Duration) *QuoteRepository {
	return &QuoteRepository{
		client:    client,
		namespace: namespace,
		threshold: stalenessThreshold,
		now:       time.Now,
	}
}

// GetUnderlyingPrice returns the latest spot quote for a pair
// Missing keys map to ErrNoAggregator, stale answers to ErrOutOfSync
func (r *QuoteRepository) GetUnderlyingPrice(ctx context.Context, pairID uuid.UUID) (*oracle.Quote, error) {
	key := r.getKey(pairID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.OracleReads.WithLabelValues("price", "missing").Inc()
		return nil, errors.Wrapf(errors.ErrNoAggregator, "no price feed for pair %s", pairID)
	}
	if err != nil {
		metrics.OracleReads.WithLabelValues("price", "error").Inc()
		return nil, errors.Wrapf(err, "failed to read price feed: pair=%s", pairID)
	}

	var quote oracle.Quote
	if err := json.Unmarshal([]byte(data), &quote); err != nil {
		metrics.OracleReads.WithLabelValues("price", "error").Inc()
		return nil, errors.Wrapf(err, "failed to unmarshal price quote: pair=%s", pairID)
	}

	if quote.Stale(r.now(), r.threshold) {
		metrics.OracleReads.WithLabelValues("price", "stale").Inc()
		return nil, errors.Wrapf(errors.ErrOutOfSync, "price feed for pair %s last updated %s",
			pairID, quote.UpdatedAt.Format(time.RFC3339))
	}

	metrics.OracleReads.WithLabelValues("price", "success").Inc()
	return &quote, nil
}

// PutQuote writes a quote; used by the feeder and by seeding
func (r *QuoteRepository) PutQuote(ctx context.Context, pairID uuid.UUID, quote *oracle.Quote) error {
	data, err := json.Marshal(quote)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal price quote: pair=%s", pairID)
	}

	if err := r.client.Set(ctx, r.getKey(pairID), data, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to write price feed: pair=%s", pairID)
	}
	return nil
}

func (r *QuoteRepository) getKey(pairID uuid.UUID) string {
	return fmt.Sprintf("%s:spot:%s", r.namespace, pairID)
}
