package asset

import (
	"context"

	"github.com/shopspring/decimal"
)

// Transferor moves settlement value in the quote asset to a recipient account
// Implementations fail with ErrInvalidAddress for an empty recipient
type Transferor interface {
	Transfer(ctx context.Context, to string, amount decimal.Decimal) error
}

// Swapper exchanges settlement value into another asset via the external DEX
// and delivers the proceeds to the recipient
type Swapper interface {
	Swap(ctx context.Context, fromAsset, toAsset string, amount decimal.Decimal, recipient string) (decimal.Decimal, error)
}
