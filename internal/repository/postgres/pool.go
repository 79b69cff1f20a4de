package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pool"
	"hyperion/pkg/errors"
)

// Compile-time check
var _ pool.Repository = (*PoolRepository)(nil)

// PoolRepository implements pool.Repository using sqlx
// It works against DBTX so the same code serves both direct connections
// and unit-of-work transactions
type PoolRepository struct {
	db DBTX
}

// NewPoolRepository creates a new pool repository
func NewPoolRepository(db DBTX) *PoolRepository {
	return &PoolRepository{db: db}
}

// CreatePool inserts a new liquidity pool
func (r *PoolRepository) CreatePool(ctx context.Context, p *pool.Pool) error {
	query := `
		INSERT INTO pools (
			id, pair_id, option_type, model, expiry_bucket,
			total_balance, locked_balance, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.PairID, p.Type, p.Model, p.ExpiryBucket,
		p.TotalBalance, p.LockedBalance, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPool retrieves a pool by ID
func (r *PoolRepository) GetPool(ctx context.Context, id uuid.UUID) (*pool.Pool, error) {
	return r.getPool(ctx, id, `SELECT * FROM pools WHERE id = $1`)
}

// GetPoolForUpdate retrieves a pool holding a row lock for the remainder
// of the transaction
func (r *PoolRepository) GetPoolForUpdate(ctx context.Context, id uuid.UUID) (*pool.Pool, error) {
	return r.getPool(ctx, id, `SELECT * FROM pools WHERE id = $1 FOR UPDATE`)
}

func (r *PoolRepository) getPool(ctx context.Context, id uuid.UUID, query string) (*pool.Pool, error) {
	var p pool.Pool

	err := r.db.GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "pool %s", id)
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// ListPools retrieves all pools
func (r *PoolRepository) ListPools(ctx context.Context) ([]*pool.Pool, error) {
	var pools []*pool.Pool

	query := `SELECT * FROM pools ORDER BY pair_id, option_type, model, expiry_bucket`

	err := r.db.SelectContext(ctx, &pools, query)
	if err != nil {
		return nil, err
	}

	return pools, nil
}

// PoolsByStrategy lists the pools serving (pair, type, model), default pool
// first then tier pools by descending expiry bucket
func (r *PoolRepository) PoolsByStrategy(ctx context.Context, pairID uuid.UUID, typ option.Type, model string) ([]*pool.Pool, error) {
	var pools []*pool.Pool

	query := `
		SELECT * FROM pools
		WHERE pair_id = $1 AND option_type = $2 AND model = $3
		ORDER BY (expiry_bucket = 0) DESC, expiry_bucket DESC`

	err := r.db.SelectContext(ctx, &pools, query, pairID, typ, model)
	if err != nil {
		return nil, err
	}

	return pools, nil
}

// UpdatePoolBalances writes both balances; callers enforce locked <= total
func (r *PoolRepository) UpdatePoolBalances(ctx context.Context, id uuid.UUID, total, locked decimal.Decimal) error {
	query := `UPDATE pools SET total_balance = $2, locked_balance = $3, updated_at = NOW() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id, total, locked)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrNotFound, "pool %s", id)
	}
	return nil
}

// AppendPosition appends one ledger entry; seq is assigned per (provider, pool)
func (r *PoolRepository) AppendPosition(ctx context.Context, p *pool.ProviderPosition) error {
	query := `
		INSERT INTO provider_positions (
			id, provider, pool_id, seq,
			transaction_value, current_balance, deposit_day, created_at
		) VALUES (
			$1, $2, $3,
			COALESCE((SELECT MAX(seq) FROM provider_positions WHERE provider = $2 AND pool_id = $3), 0) + 1,
			$4, $5, $6, $7
		)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Provider, p.PoolID,
		p.TransactionValue, p.CurrentBalance, p.DepositDay, p.CreatedAt,
	)
	return err
}

// ProviderPoolBalance returns the provider's running cumulative in one pool
func (r *PoolRepository) ProviderPoolBalance(ctx context.Context, provider string, poolID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal

	query := `
		SELECT current_balance FROM provider_positions
		WHERE provider = $1 AND pool_id = $2
		ORDER BY seq DESC LIMIT 1`

	err := r.db.GetContext(ctx, &balance, query, provider, poolID)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

// ProviderPoolBalanceAsOf returns the provider's cumulative built from entries
// deposited strictly before the given day
func (r *PoolRepository) ProviderPoolBalanceAsOf(ctx context.Context, provider string, poolID uuid.UUID, day pool.Day) (decimal.Decimal, error) {
	var balance decimal.Decimal

	query := `
		SELECT current_balance FROM provider_positions
		WHERE provider = $1 AND pool_id = $2 AND deposit_day < $3
		ORDER BY seq DESC LIMIT 1`

	err := r.db.GetContext(ctx, &balance, query, provider, poolID, day)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

// ProviderBalance returns the provider's cumulative across all pools
func (r *PoolRepository) ProviderBalance(ctx context.Context, provider string) (decimal.Decimal, error) {
	var balance decimal.Decimal

	query := `
		SELECT COALESCE(SUM(latest.current_balance), 0) FROM (
			SELECT DISTINCT ON (pool_id) current_balance
			FROM provider_positions
			WHERE provider = $1
			ORDER BY pool_id, seq DESC
		) latest`

	err := r.db.GetContext(ctx, &balance, query, provider)
	if err != nil {
		return decimal.Zero, err
	}

	return balance, nil
}

// PoolProviders lists the distinct providers with ledger entries in a pool
func (r *PoolRepository) PoolProviders(ctx context.Context, poolID uuid.UUID) ([]string, error) {
	var providers []string

	query := `SELECT DISTINCT provider FROM provider_positions WHERE pool_id = $1 ORDER BY provider`

	err := r.db.SelectContext(ctx, &providers, query, poolID)
	if err != nil {
		return nil, err
	}

	return providers, nil
}

// ProviderPositions lists a provider's ledger entries for one pool, oldest first
func (r *PoolRepository) ProviderPositions(ctx context.Context, provider string, poolID uuid.UUID) ([]*pool.ProviderPosition, error) {
	var positions []*pool.ProviderPosition

	query := `
		SELECT * FROM provider_positions
		WHERE provider = $1 AND pool_id = $2
		ORDER BY seq ASC`

	err := r.db.SelectContext(ctx, &positions, query, provider, poolID)
	if err != nil {
		return nil, err
	}

	return positions, nil
}

// BumpDayLiquidity carries the latest prior bucket forward on first touch of
// a new day, then applies delta to the current day's bucket
func (r *PoolRepository) BumpDayLiquidity(ctx context.Context, poolID uuid.UUID, day pool.Day, delta decimal.Decimal) error {
	query := `
		INSERT INTO day_liquidity (pool_id, day, amount)
		VALUES (
			$1, $2,
			COALESCE((SELECT amount FROM day_liquidity WHERE pool_id = $1 AND day < $2 ORDER BY day DESC LIMIT 1), 0) + $3
		)
		ON CONFLICT (pool_id, day) DO UPDATE SET amount = day_liquidity.amount + $3`

	_, err := r.db.ExecContext(ctx, query, poolID, day, delta)
	return err
}

// DayLiquidity returns the active liquidity bucket for one day
// Falls back to the latest prior bucket when the day was never touched
func (r *PoolRepository) DayLiquidity(ctx context.Context, poolID uuid.UUID, day pool.Day) (decimal.Decimal, error) {
	var amount decimal.Decimal

	query := `
		SELECT amount FROM day_liquidity
		WHERE pool_id = $1 AND day <= $2
		ORDER BY day DESC LIMIT 1`

	err := r.db.GetContext(ctx, &amount, query, poolID, day)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	return amount, nil
}

// AccruePremium adds to the (pool, day) premium accumulator
func (r *PoolRepository) AccruePremium(ctx context.Context, poolID uuid.UUID, day pool.Day, amount decimal.Decimal) error {
	query := `
		INSERT INTO premium_accruals (pool_id, day, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (pool_id, day) DO UPDATE SET amount = premium_accruals.amount + $3`

	_, err := r.db.ExecContext(ctx, query, poolID, day, amount)
	return err
}

// AccruedPremium returns the premium accumulated for (pool, day)
func (r *PoolRepository) AccruedPremium(ctx context.Context, poolID uuid.UUID, day pool.Day) (decimal.Decimal, error) {
	var amount decimal.Decimal

	query := `SELECT amount FROM premium_accruals WHERE pool_id = $1 AND day = $2`

	err := r.db.GetContext(ctx, &amount, query, poolID, day)
	if err == sql.ErrNoRows {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	return amount, nil
}

// UndistributedPremiumDays lists (pool, day) accruals before the given day
// that have no distribution rows yet
func (r *PoolRepository) UndistributedPremiumDays(ctx context.Context, before pool.Day) ([]pool.PremiumDay, error) {
	var days []pool.PremiumDay

	query := `
		SELECT a.pool_id, a.day FROM premium_accruals a
		WHERE a.day < $1 AND a.amount > 0
		  AND NOT EXISTS (
			SELECT 1 FROM premium_distributions d
			WHERE d.pool_id = a.pool_id AND d.day = a.day
		  )
		ORDER BY a.day ASC, a.pool_id`

	err := r.db.SelectContext(ctx, &days, query, before)
	if err != nil {
		return nil, err
	}

	return days, nil
}

// InsertDistribution records a provider's credited share for a settled day
// Returns false when the (pool, day, provider) row already exists
func (r *PoolRepository) InsertDistribution(ctx context.Context, d *pool.PremiumDistribution) (bool, error) {
	query := `
		INSERT INTO premium_distributions (id, pool_id, day, provider, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pool_id, day, provider) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query, d.ID, d.PoolID, d.Day, d.Provider, d.Amount, d.CreatedAt)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveRoute replaces the explicit pool route for a strategy key
func (r *PoolRepository) SaveRoute(ctx context.Context, route *pool.Route) error {
	del := `
		DELETE FROM allocation_routes
		WHERE pair_id = $1 AND option_type = $2 AND model = $3 AND expiry_days = $4`

	if _, err := r.db.ExecContext(ctx, del, route.PairID, route.Type, route.Model, route.ExpiryDays); err != nil {
		return err
	}

	ins := `
		INSERT INTO allocation_routes (pair_id, option_type, model, expiry_days, position, pool_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for i, poolID := range route.PoolIDs {
		if _, err := r.db.ExecContext(ctx, ins, route.PairID, route.Type, route.Model, route.ExpiryDays, i, poolID); err != nil {
			return err
		}
	}
	return nil
}

// GetRoute loads the explicit pool route for a strategy key
func (r *PoolRepository) GetRoute(ctx context.Context, pairID uuid.UUID, typ option.Type, model string, expiryDays int32) (*pool.Route, error) {
	var poolIDs []uuid.UUID

	query := `
		SELECT pool_id FROM allocation_routes
		WHERE pair_id = $1 AND option_type = $2 AND model = $3 AND expiry_days = $4
		ORDER BY position ASC`

	err := r.db.SelectContext(ctx, &poolIDs, query, pairID, typ, model, expiryDays)
	if err != nil {
		return nil, err
	}
	if len(poolIDs) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no route for pair %s %s %s %dd", pairID, typ, model, expiryDays)
	}

	return &pool.Route{
		PairID:     pairID,
		Type:       typ,
		Model:      model,
		ExpiryDays: expiryDays,
		PoolIDs:    poolIDs,
	}, nil
}
