package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pool"
)

// PoolBuilder provides a fluent API for creating Pool entities
type PoolBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *pool.Pool
}

// NewPoolBuilder creates a new PoolBuilder for a default call pool
func NewPoolBuilder(db DBTX, ctx context.Context) *PoolBuilder {
	now := time.Now()

	return &PoolBuilder{
		db:  db,
		ctx: ctx,
		entity: &pool.Pool{
			ID:            uuid.New(),
			PairID:        uuid.New(),
			Type:          option.TypeCall,
			Model:         "bs",
			ExpiryBucket:  0,
			TotalBalance:  decimal.Zero,
			LockedBalance: decimal.Zero,
			CreatedAt:     now,
			UpdatedAt:     now,
		},
	}
}

// WithID sets a specific ID
func (b *PoolBuilder) WithID(id uuid.UUID) *PoolBuilder {
	b.entity.ID = id
	return b
}

// WithPair binds the pool to an asset pair
func (b *PoolBuilder) WithPair(pairID uuid.UUID) *PoolBuilder {
	b.entity.PairID = pairID
	return b
}

// WithType sets the option type the pool serves
func (b *PoolBuilder) WithType(t option.Type) *PoolBuilder {
	b.entity.Type = t
	return b
}

// WithModel sets the premium model tag
func (b *PoolBuilder) WithModel(model string) *PoolBuilder {
	b.entity.Model = model
	return b
}

// WithExpiryBucket sets the expiry tier; 0 marks the default pool
func (b *PoolBuilder) WithExpiryBucket(days int32) *PoolBuilder {
	b.entity.ExpiryBucket = days
	return b
}

// WithBalances sets the total and locked balances
func (b *PoolBuilder) WithBalances(total, locked decimal.Decimal) *PoolBuilder {
	b.entity.TotalBalance = total
	b.entity.LockedBalance = locked
	return b
}

// Build returns the built entity without inserting to DB
func (b *PoolBuilder) Build() *pool.Pool {
	return b.entity
}

// Insert inserts the pool into the database and returns the entity
func (b *PoolBuilder) Insert() (*pool.Pool, error) {
	query := `
		INSERT INTO pools (
			id, pair_id, option_type, model, expiry_bucket,
			total_balance, locked_balance, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := b.db.ExecContext(
		b.ctx,
		query,
		b.entity.ID,
		b.entity.PairID,
		b.entity.Type,
		b.entity.Model,
		b.entity.ExpiryBucket,
		b.entity.TotalBalance,
		b.entity.LockedBalance,
		b.entity.CreatedAt,
		b.entity.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to insert pool: %w", err)
	}

	return b.entity, nil
}

// MustInsert inserts the pool and panics on error (useful for tests)
func (b *PoolBuilder) MustInsert() *pool.Pool {
	entity, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return entity
}
