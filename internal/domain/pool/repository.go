package pool

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/option"
)

// Repository defines the interface for pool and liquidity ledger persistence
//
// All mutating methods participate in the surrounding unit of work; an
// operation's writes either all commit or all roll back
type Repository interface {
	// Pool operations
	CreatePool(ctx context.Context, p *Pool) error
	GetPool(ctx context.Context, id uuid.UUID) (*Pool, error)

	// GetPoolForUpdate retrieves a pool with a row lock held for the
	// remainder of the unit of work
	GetPoolForUpdate(ctx context.Context, id uuid.UUID) (*Pool, error)

	ListPools(ctx context.Context) ([]*Pool, error)

	// PoolsByStrategy lists the pools serving (pair, type, model),
	// default pool first then tier pools by descending expiry bucket
	PoolsByStrategy(ctx context.Context, pairID uuid.UUID, typ option.Type, model string) ([]*Pool, error)

	// UpdatePoolBalances writes both balances; callers enforce locked <= total
	UpdatePoolBalances(ctx context.Context, id uuid.UUID, total, locked decimal.Decimal) error

	// Provider position ledger
	AppendPosition(ctx context.Context, p *ProviderPosition) error
	ProviderPoolBalance(ctx context.Context, provider string, poolID uuid.UUID) (decimal.Decimal, error)

	// ProviderPoolBalanceAsOf returns the provider's cumulative balance built
	// from entries deposited strictly before the given day
	ProviderPoolBalanceAsOf(ctx context.Context, provider string, poolID uuid.UUID, day Day) (decimal.Decimal, error)

	ProviderBalance(ctx context.Context, provider string) (decimal.Decimal, error)
	PoolProviders(ctx context.Context, poolID uuid.UUID) ([]string, error)
	ProviderPositions(ctx context.Context, provider string, poolID uuid.UUID) ([]*ProviderPosition, error)

	// Day-bucketed active liquidity
	// BumpDayLiquidity carries the latest prior bucket forward on first touch
	// of a new day, then applies delta to the current day's bucket only
	BumpDayLiquidity(ctx context.Context, poolID uuid.UUID, day Day, delta decimal.Decimal) error
	DayLiquidity(ctx context.Context, poolID uuid.UUID, day Day) (decimal.Decimal, error)

	// Premium accrual per (pool, day)
	AccruePremium(ctx context.Context, poolID uuid.UUID, day Day, amount decimal.Decimal) error
	AccruedPremium(ctx context.Context, poolID uuid.UUID, day Day) (decimal.Decimal, error)

	// UndistributedPremiumDays lists (pool, day) accruals before the given day
	// that have no distribution rows yet
	UndistributedPremiumDays(ctx context.Context, before Day) ([]PremiumDay, error)

	// InsertDistribution records a provider's credited share for a settled day
	// Returns false without error when the (pool, day, provider) row already
	// exists, making distribution idempotent
	InsertDistribution(ctx context.Context, d *PremiumDistribution) (bool, error)

	// Allocation routes
	SaveRoute(ctx context.Context, r *Route) error
	GetRoute(ctx context.Context, pairID uuid.UUID, typ option.Type, model string, expiryDays int32) (*Route, error)
}

// PremiumDay keys one day's premium accrual for one pool
type PremiumDay struct {
	PoolID uuid.UUID `db:"pool_id"`
	Day    Day       `db:"day"`
}

// UnitOfWork runs a function against a transactional Repository view
// The function's writes commit together or not at all
type UnitOfWork interface {
	Do(ctx context.Context, fn func(Repository) error) error
}
