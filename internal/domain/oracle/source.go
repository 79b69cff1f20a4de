package oracle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is a fixed-point oracle answer: Value is the raw mantissa at
// Decimals precision, UpdatedAt the aggregator's last update time
type Quote struct {
	Value     decimal.Decimal `json:"value"`
	Decimals  int32           `json:"decimals"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Normalized returns the quote rescaled to a plain decimal
func (q *Quote) Normalized() decimal.Decimal {
	return q.Value.Shift(-q.Decimals)
}

// Stale reports whether the quote is older than the threshold at the given time
func (q *Quote) Stale(now time.Time, threshold time.Duration) bool {
	return now.Sub(q.UpdatedAt) > threshold
}

// PriceSource provides the current spot price for an asset pair
// Implementations fail with ErrNoAggregator when no source is registered
// for the pair and ErrOutOfSync when the latest answer is stale
type PriceSource interface {
	GetUnderlyingPrice(ctx context.Context, pairID uuid.UUID) (*Quote, error)
}

// IVSource provides an implied volatility quote for a pair, expiry and
// strike/spot combination; same failure modes as PriceSource
type IVSource interface {
	GetIV(ctx context.Context, pairID uuid.UUID, expiryDays int32, spot, strike decimal.Decimal) (*Quote, error)
}
