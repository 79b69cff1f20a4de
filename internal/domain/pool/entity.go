package pool

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/option"
)

// Day identifies a UTC calendar day as days since the Unix epoch
// Day-bucketed liquidity accounting is keyed by this value
type Day int32

// DayOf returns the day bucket containing t
func DayOf(t time.Time) Day {
	return Day(t.UTC().Unix() / 86400)
}

// Today returns the current day bucket
func Today() Day {
	return DayOf(time.Now())
}

// Time returns the start of the day in UTC
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// Pool represents a single liquidity pool
//
// A pool is scoped by strategy: (pair, option type, premium model, expiry bucket)
// The default catch-all pool for a pair/type carries ExpiryBucket 0
type Pool struct {
	ID     uuid.UUID `db:"id"`
	PairID uuid.UUID `db:"pair_id"`

	Type  option.Type `db:"option_type"`
	Model string      `db:"model"` // premium model tag, e.g. "bs"

	// Expiry tier in days; 0 marks the default pool
	ExpiryBucket int32 `db:"expiry_bucket"`

	TotalBalance  decimal.Decimal `db:"total_balance"`
	LockedBalance decimal.Decimal `db:"locked_balance"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Available returns the balance not locked as option collateral
// Invariant: LockedBalance <= TotalBalance at all times
func (p *Pool) Available() decimal.Decimal {
	return p.TotalBalance.Sub(p.LockedBalance)
}

// IsDefault reports whether this is the catch-all pool for its strategy
func (p *Pool) IsDefault() bool {
	return p.ExpiryBucket == 0
}

// ProviderPosition is one deposit (or premium credit) entry in a provider's
// per-pool ledger; entries accumulate, withdrawal consumes the running cumulative
type ProviderPosition struct {
	ID       uuid.UUID `db:"id"`
	Provider string    `db:"provider"`
	PoolID   uuid.UUID `db:"pool_id"`
	Seq      int64     `db:"seq"`

	// Amount moved in this entry; negative for withdrawals
	TransactionValue decimal.Decimal `db:"transaction_value"`

	// Running cumulative after this entry
	CurrentBalance decimal.Decimal `db:"current_balance"`

	DepositDay Day       `db:"deposit_day"`
	CreatedAt  time.Time `db:"created_at"`
}

// DayLiquidity is the aggregate active liquidity of a pool for one day bucket
// Historical rows are immutable once the day has settled
type DayLiquidity struct {
	PoolID uuid.UUID       `db:"pool_id"`
	Day    Day             `db:"day"`
	Amount decimal.Decimal `db:"amount"`
}

// PremiumDistribution records one provider's credited share of a day's premium
// Uniqueness over (pool, day, provider) makes distribution idempotent
type PremiumDistribution struct {
	ID       uuid.UUID       `db:"id"`
	PoolID   uuid.UUID       `db:"pool_id"`
	Day      Day             `db:"day"`
	Provider string          `db:"provider"`
	Amount   decimal.Decimal `db:"amount"`

	CreatedAt time.Time `db:"created_at"`
}

// Route is the ordered list of pools serving a strategy key
// Order is deterministic and load-bearing: locking draws pool-by-pool in
// route order, and any reordering changes lock outcomes
type Route struct {
	PairID     uuid.UUID   `db:"pair_id"`
	Type       option.Type `db:"option_type"`
	Model      string      `db:"model"`
	ExpiryDays int32       `db:"expiry_days"`

	PoolIDs []uuid.UUID `db:"-"`
}
