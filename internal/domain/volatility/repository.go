package volatility

import (
	"context"

	"github.com/google/uuid"
)

// Surface defines the interface for volatility surface persistence
type Surface interface {
	// Upsert writes a calibrated point; rejects decimals outside [MinDecimals, MaxDecimals]
	Upsert(ctx context.Context, p *Point) error

	// FloorPoint returns the stored point with the greatest moneyness bucket
	// at or below the requested one, for the exact (pair, expiry)
	// Returns ErrNotFound when the expiry has no bucket at or below it
	FloorPoint(ctx context.Context, pairID uuid.UUID, expiryDays, moneyness int32) (*Point, error)

	// Expiries lists the distinct calibrated expiry buckets for a pair, ascending
	Expiries(ctx context.Context, pairID uuid.UUID) ([]int32, error)
}
