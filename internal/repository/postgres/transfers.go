package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/asset"
	"hyperion/pkg/errors"
)

// Compile-time checks
var (
	_ asset.Transferor = (*TransferLedger)(nil)
	_ asset.Swapper    = (*TransferLedger)(nil)
)

// TransferLedger records outbound settlement transfers and swaps
// The on-chain execution happens outside this engine; the ledger is the
// engine's durable record of what it instructed
type TransferLedger struct {
	db *sqlx.DB
}

// NewTransferLedger creates a new transfer ledger
func NewTransferLedger(db *sqlx.DB) *TransferLedger {
	return &TransferLedger{db: db}
}

// Transfer records an outbound quote-asset transfer instruction
func (l *TransferLedger) Transfer(ctx context.Context, to string, amount decimal.Decimal) error {
	if to == "" {
		return errors.Wrap(errors.ErrInvalidAddress, "empty recipient")
	}
	if amount.Sign() <= 0 {
		return errors.Wrapf(errors.ErrAmountTooSmall, "transfer amount %s", amount)
	}

	query := `
		INSERT INTO settlement_transfers (id, recipient, amount, kind, created_at)
		VALUES ($1, $2, $3, 'transfer', $4)`

	_, err := l.db.ExecContext(ctx, query, uuid.New(), to, amount, time.Now())
	return err
}

// Swap records a swap-and-deliver instruction and returns the amount handed
// to the swap venue. The realized proceeds are reported back asynchronously
// and do not flow through this call
func (l *TransferLedger) Swap(ctx context.Context, fromAsset, toAsset string, amount decimal.Decimal, recipient string) (decimal.Decimal, error) {
	if recipient == "" {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidAddress, "empty recipient")
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, errors.Wrapf(errors.ErrAmountTooSmall, "swap amount %s", amount)
	}
	if fromAsset == "" || toAsset == "" || fromAsset == toAsset {
		return decimal.Zero, errors.Wrapf(errors.ErrInvalidInput, "swap %s -> %s", fromAsset, toAsset)
	}

	query := `
		INSERT INTO settlement_transfers (id, recipient, amount, kind, from_asset, to_asset, created_at)
		VALUES ($1, $2, $3, 'swap', $4, $5, $6)`

	_, err := l.db.ExecContext(ctx, query, uuid.New(), recipient, amount, fromAsset, toAsset, time.Now())
	if err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}
