package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/pair"
	"hyperion/internal/testsupport"
)

// AssetPairBuilder provides a fluent API for creating AssetPair entities
type AssetPairBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *pair.AssetPair
}

// NewAssetPairBuilder creates a new AssetPairBuilder with sensible defaults
func NewAssetPairBuilder(db DBTX, ctx context.Context) *AssetPairBuilder {
	now := time.Now()

	return &AssetPairBuilder{
		db:  db,
		ctx: ctx,
		entity: &pair.AssetPair{
			ID:            uuid.New(),
			Base:          testsupport.UniqueSymbol("ETH"),
			Quote:         "USD",
			Active:        true,
			PurchaseLimit: decimal.RequireFromString("0.01"),
			MinExpiryDays: 1,
			MaxExpiryDays: 28,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

// WithID sets a specific ID
func (b *AssetPairBuilder) WithID(id uuid.UUID) *AssetPairBuilder {
	b.entity.ID = id
	return b
}

// WithSymbols sets the base and quote symbols
func (b *AssetPairBuilder) WithSymbols(base, quote string) *AssetPairBuilder {
	b.entity.Base = base
	b.entity.Quote = quote
	return b
}

// WithActive sets the active flag
func (b *AssetPairBuilder) WithActive(active bool) *AssetPairBuilder {
	b.entity.Active = active
	return b
}

// WithPurchaseLimit sets the minimum purchasable amount
func (b *AssetPairBuilder) WithPurchaseLimit(limit decimal.Decimal) *AssetPairBuilder {
	b.entity.PurchaseLimit = limit
	return b
}

// WithExpiryBounds sets the allowed expiry window in days
func (b *AssetPairBuilder) WithExpiryBounds(min, max int32) *AssetPairBuilder {
	b.entity.MinExpiryDays = min
	b.entity.MaxExpiryDays = max
	return b
}

// Build returns the built entity without inserting to DB
func (b *AssetPairBuilder) Build() *pair.AssetPair {
	return b.entity
}

// Insert inserts the asset pair into the database and returns the entity
func (b *AssetPairBuilder) Insert() (*pair.AssetPair, error) {
	query := `
		INSERT INTO asset_pairs (
			id, base_symbol, quote_symbol, active,
			purchase_limit, min_expiry_days, max_expiry_days,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := b.db.ExecContext(
		b.ctx,
		query,
		b.entity.ID,
		b.entity.Base,
		b.entity.Quote,
		b.entity.Active,
		b.entity.PurchaseLimit,
		b.entity.MinExpiryDays,
		b.entity.MaxExpiryDays,
		b.entity.CreatedAt,
		b.entity.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to insert asset pair: %w", err)
	}

	return b.entity, nil
}

// MustInsert inserts the asset pair and panics on error (useful for tests)
func (b *AssetPairBuilder) MustInsert() *pair.AssetPair {
	entity, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return entity
}
