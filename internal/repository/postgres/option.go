package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hyperion/internal/domain/option"
	"hyperion/pkg/errors"
)

// Compile-time check
var _ option.Repository = (*OptionRepository)(nil)

// OptionRepository implements option.Repository using sqlx
type OptionRepository struct {
	db DBTX
}

// NewOptionRepository creates a new option repository
func NewOptionRepository(db DBTX) *OptionRepository {
	return &OptionRepository{db: db}
}

// Create inserts a new option in pending state
func (r *OptionRepository) Create(ctx context.Context, o *option.Option) error {
	query := `
		INSERT INTO options (
			id, pair_id, holder, option_type, model,
			strike, amount, expiration, premium, fee,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		o.ID, o.PairID, o.Holder, o.Type, o.Model,
		o.Strike, o.Amount, o.Expiration, o.Premium, o.Fee,
		o.Status, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

// GetByID retrieves an option with its pool locks
func (r *OptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*option.Option, error) {
	var o option.Option

	query := `SELECT * FROM options WHERE id = $1`

	err := r.db.GetContext(ctx, &o, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "option %s", id)
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadLocks(ctx, &o); err != nil {
		return nil, err
	}

	return &o, nil
}

// GetActiveExpiredBefore retrieves active options whose expiration is at or
// before the deadline, oldest first
func (r *OptionRepository) GetActiveExpiredBefore(ctx context.Context, deadline time.Time, limit int) ([]*option.Option, error) {
	var rows []*option.Option

	query := `
		SELECT * FROM options
		WHERE status = $1 AND expiration <= $2
		ORDER BY expiration ASC
		LIMIT $3`

	err := r.db.SelectContext(ctx, &rows, query, option.StatusActive, deadline, limit)
	if err != nil {
		return nil, err
	}

	for _, o := range rows {
		if err := r.loadLocks(ctx, o); err != nil {
			return nil, err
		}
	}

	return rows, nil
}

// GetByHolder retrieves all options bought by a settlement account
func (r *OptionRepository) GetByHolder(ctx context.Context, holder string) ([]*option.Option, error) {
	var rows []*option.Option

	query := `SELECT * FROM options WHERE holder = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &rows, query, holder)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// SetStatus transitions an option between lifecycle states
// The WHERE clause on the current status makes the transition atomic
func (r *OptionRepository) SetStatus(ctx context.Context, id uuid.UUID, from, to option.Status) error {
	query := `UPDATE options SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	res, err := r.db.ExecContext(ctx, query, id, from, to)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(errors.ErrInvalidState, "option %s is not %s", id, from)
	}
	return nil
}

// MarkUnlocked stamps the collateral release time on a terminal option
func (r *OptionRepository) MarkUnlocked(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE options SET unlocked_at = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, at)
	return err
}

// SaveLocks persists the per-pool collateral shares for an option
func (r *OptionRepository) SaveLocks(ctx context.Context, id uuid.UUID, locks []option.Lock) error {
	query := `
		INSERT INTO option_locks (option_id, pool_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (option_id, pool_id) DO UPDATE SET amount = EXCLUDED.amount`

	for _, l := range locks {
		if _, err := r.db.ExecContext(ctx, query, id, l.PoolID, l.Amount); err != nil {
			return err
		}
	}
	return nil
}

func (r *OptionRepository) loadLocks(ctx context.Context, o *option.Option) error {
	query := `SELECT option_id, pool_id, amount FROM option_locks WHERE option_id = $1 ORDER BY pool_id`
	return r.db.SelectContext(ctx, &o.Locks, query, o.ID)
}
