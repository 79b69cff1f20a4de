package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pool"
	"hyperion/internal/metrics"
	"hyperion/pkg/errors"
)

// Compile-time check
var _ pool.UnitOfWork = (*PoolUnitOfWork)(nil)

// PoolUnitOfWork runs pool repository operations inside one database
// transaction so an operation's writes commit together or not at all
type PoolUnitOfWork struct {
	db *sqlx.DB
}

// NewPoolUnitOfWork creates a new transactional unit of work
func NewPoolUnitOfWork(db *sqlx.DB) *PoolUnitOfWork {
	return &PoolUnitOfWork{db: db}
}

// Do begins a transaction, hands fn a repository bound to it, and commits
// when fn returns nil. Any error rolls everything back
func (u *PoolUnitOfWork) Do(ctx context.Context, fn func(pool.Repository) error) error {
	return inTx(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(NewPoolRepository(tx))
	})
}

// SettlementUnitOfWork binds pool and option repositories to one transaction
// so balance writes and option state transitions commit together
type SettlementUnitOfWork struct {
	db *sqlx.DB
}

// NewSettlementUnitOfWork creates a new settlement unit of work
func NewSettlementUnitOfWork(db *sqlx.DB) *SettlementUnitOfWork {
	return &SettlementUnitOfWork{db: db}
}

// Do begins a transaction and hands fn both repositories bound to it
func (u *SettlementUnitOfWork) Do(ctx context.Context, fn func(pool.Repository, option.Repository) error) error {
	return inTx(ctx, u.db, func(tx *sqlx.Tx) error {
		return fn(NewPoolRepository(tx), NewOptionRepository(tx))
	})
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) (err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("postgres", "tx", time.Since(start), err) }()

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
