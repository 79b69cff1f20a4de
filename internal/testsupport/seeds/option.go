package seeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/option"
	"hyperion/internal/testsupport"
)

// OptionBuilder provides a fluent API for creating Option entities
type OptionBuilder struct {
	db     DBTX
	ctx    context.Context
	entity *option.Option
}

// NewOptionBuilder creates a new OptionBuilder for a pending 7-day call
func NewOptionBuilder(db DBTX, ctx context.Context) *OptionBuilder {
	now := time.Now()

	return &OptionBuilder{
		db:  db,
		ctx: ctx,
		entity: &option.Option{
			ID:         uuid.New(),
			PairID:     uuid.New(),
			Holder:     testsupport.UniqueName("holder"),
			Type:       option.TypeCall,
			Model:      "bs",
			Strike:     decimal.NewFromInt(2000),
			Amount:     decimal.NewFromInt(1),
			Expiration: now.Add(7 * 24 * time.Hour),
			Premium:    decimal.RequireFromString("50"),
			Fee:        decimal.RequireFromString("1"),
			Status:     option.StatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

// WithID sets a specific ID
func (b *OptionBuilder) WithID(id uuid.UUID) *OptionBuilder {
	b.entity.ID = id
	return b
}

// WithPair binds the option to an asset pair
func (b *OptionBuilder) WithPair(pairID uuid.UUID) *OptionBuilder {
	b.entity.PairID = pairID
	return b
}

// WithHolder sets the buyer's settlement account
func (b *OptionBuilder) WithHolder(holder string) *OptionBuilder {
	b.entity.Holder = holder
	return b
}

// WithType sets the option type
func (b *OptionBuilder) WithType(t option.Type) *OptionBuilder {
	b.entity.Type = t
	return b
}

// WithStrike sets the strike price
func (b *OptionBuilder) WithStrike(strike decimal.Decimal) *OptionBuilder {
	b.entity.Strike = strike
	return b
}

// WithAmount sets the underlying amount
func (b *OptionBuilder) WithAmount(amount decimal.Decimal) *OptionBuilder {
	b.entity.Amount = amount
	return b
}

// WithExpiration sets the expiration timestamp
func (b *OptionBuilder) WithExpiration(t time.Time) *OptionBuilder {
	b.entity.Expiration = t
	return b
}

// WithPremium sets the premium and fee
func (b *OptionBuilder) WithPremium(premium, fee decimal.Decimal) *OptionBuilder {
	b.entity.Premium = premium
	b.entity.Fee = fee
	return b
}

// WithStatus sets the lifecycle status
func (b *OptionBuilder) WithStatus(status option.Status) *OptionBuilder {
	b.entity.Status = status
	return b
}

// WithLock adds a collateral share drawn from a pool
func (b *OptionBuilder) WithLock(poolID uuid.UUID, amount decimal.Decimal) *OptionBuilder {
	b.entity.Locks = append(b.entity.Locks, option.Lock{
		OptionID: b.entity.ID,
		PoolID:   poolID,
		Amount:   amount,
	})
	return b
}

// Build returns the built entity without inserting to DB
func (b *OptionBuilder) Build() *option.Option {
	return b.entity
}

// Insert inserts the option and its locks into the database
func (b *OptionBuilder) Insert() (*option.Option, error) {
	query := `
		INSERT INTO options (
			id, pair_id, holder, option_type, model,
			strike, amount, expiration, premium, fee,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := b.db.ExecContext(
		b.ctx,
		query,
		b.entity.ID,
		b.entity.PairID,
		b.entity.Holder,
		b.entity.Type,
		b.entity.Model,
		b.entity.Strike,
		b.entity.Amount,
		b.entity.Expiration,
		b.entity.Premium,
		b.entity.Fee,
		b.entity.Status,
		b.entity.CreatedAt,
		b.entity.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert option: %w", err)
	}

	for _, l := range b.entity.Locks {
		_, err := b.db.ExecContext(
			b.ctx,
			`INSERT INTO option_locks (option_id, pool_id, amount) VALUES ($1, $2, $3)`,
			l.OptionID, l.PoolID, l.Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert option lock: %w", err)
		}
	}

	return b.entity, nil
}

// MustInsert inserts the option and panics on error (useful for tests)
func (b *OptionBuilder) MustInsert() *option.Option {
	entity, err := b.Insert()
	if err != nil {
		panic(err)
	}
	return entity
}
