package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/volatility"
)

// VolPointBuilder provides a fluent API for creating volatility surface points
type VolPointBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *volatility.Point
}

// NewVolPointBuilder creates a new VolPointBuilder with an ATM default
// (IV mantissa 8000000 at 7 decimals, i.e. 80% annualized)
func NewVolPointBuilder(db DBTX, ctx context.Context) *VolPointBuilder {
	return &VolPointBuilder{
		db:  db,
		ctx: ctx,
		entity: &volatility.Point{
			PairID:     uuid.New(),
			ExpiryDays: 7,
			Moneyness:  volatility.AtTheMoney,
			IV:         decimal.NewFromInt(8000000),
			Decimals:   7,
			UpdatedAt:  time.Now(),
		},
	}
}

// WithPair binds the point to an asset pair
func (b *VolPointBuilder) WithPair(pairID uuid.UUID) *VolPointBuilder {
	b.entity.PairID = pairID
	return b
}

// WithExpiry sets the expiry bucket in days
func (b *VolPointBuilder) WithExpiry(days int32) *VolPointBuilder {
	b.entity.ExpiryDays = days
	return b
}

// WithMoneyness sets the moneyness bucket
func (b *VolPointBuilder) WithMoneyness(m int32) *VolPointBuilder {
	b.entity.Moneyness = m
	return b
}

// WithIV sets the IV mantissa and its declared precision
func (b *VolPointBuilder) WithIV(iv decimal.Decimal, decimals int32) *VolPointBuilder {
	b.entity.IV = iv
	b.entity.Decimals = decimals
	return b
}

// WithUpdatedAt sets the calibration timestamp
func (b *VolPointBuilder) WithUpdatedAt(t time.Time) *VolPointBuilder {
	b.entity.UpdatedAt = t
	return b
}

// Build returns the built entity without inserting to DB
func (b *VolPointBuilder) Build() *volatility.Point {
	return b.entity
}

// Insert inserts the point into the database and returns the entity
func (b *VolPointBuilder) Insert() (*volatility.Point, error) {
	query := `
		INSERT INTO vol_surface_points (pair_id, expiry_days, moneyness, iv, decimals, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pair_id, expiry_days, moneyness)
		DO UPDATE SET iv = EXCLUDED.iv, decimals = EXCLUDED.decimals, updated_at = EXCLUDED.updated_at
	`

	_, err := b.db.ExecContext(
		b.ctx,
		query,
		b.entity.PairID,
		b.entity.ExpiryDays,
		b.entity.Moneyness,
		b.entity.IV,
		b.entity.Decimals,
		b.entity.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to insert vol surface point: %w", err)
	}

	return b.entity, nil
}

// MustInsert inserts the point and panics on error (useful for tests)
func (b *VolPointBuilder) MustInsert() *volatility.Point {
	entity, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return entity
}
