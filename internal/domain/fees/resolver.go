package fees

import (
	"context"
)

// Resolver provides fee rates for an account, in basis points
// Discounted rates come from the external staking/fee-discount bookkeeping;
// the engine only reads them
type Resolver interface {
	// TransactionFeeBps returns the fee applied on top of a quoted premium
	TransactionFeeBps(ctx context.Context, account string) (int64, error)

	// SettlementFeeBps returns the fee withheld from an exercise payout
	SettlementFeeBps(ctx context.Context, account string) (int64, error)
}
