package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"hyperion/internal/domain/fees"
)

// Compile-time check
var _ fees.Resolver = (*FeeRepository)(nil)

// FeeRepository resolves per-account fee rates with configured defaults
// Accounts with a discount row pay the discounted rate; everyone else pays
// the default
type FeeRepository struct {
	db *sqlx.DB

	defaultTransactionBps int64
	defaultSettlementBps  int64
}

// NewFeeRepository creates a new fee repository
func NewFeeRepository(db *sqlx.DB, defaultTransactionBps, defaultSettlementBps int64) *FeeRepository {
	return &FeeRepository{
		db:                    db,
		defaultTransactionBps: defaultTransactionBps,
		defaultSettlementBps:  defaultSettlementBps,
	}
}

// TransactionFeeBps returns the fee applied on top of a quoted premium
func (r *FeeRepository) TransactionFeeBps(ctx context.Context, account string) (int64, error) {
	return r.resolve(ctx, account, "transaction_fee_bps", r.defaultTransactionBps)
}

// SettlementFeeBps returns the fee withheld from an exercise payout
func (r *FeeRepository) SettlementFeeBps(ctx context.Context, account string) (int64, error) {
	return r.resolve(ctx, account, "settlement_fee_bps", r.defaultSettlementBps)
}

func (r *FeeRepository) resolve(ctx context.Context, account, column string, fallback int64) (int64, error) {
	var bps int64

	query := `SELECT ` + column + ` FROM fee_discounts WHERE account = $1`

	err := r.db.GetContext(ctx, &bps, query, account)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}

	return bps, nil
}

// SetDiscount upserts a per-account discounted fee schedule
func (r *FeeRepository) SetDiscount(ctx context.Context, account string, transactionBps, settlementBps int64) error {
	query := `
		INSERT INTO fee_discounts (account, transaction_fee_bps, settlement_fee_bps, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account)
		DO UPDATE SET transaction_fee_bps = $2, settlement_fee_bps = $3, updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query, account, transactionBps, settlementBps)
	return err
}
