package volatility

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinDecimals and MaxDecimals bound the declared precision of calibrated
// IV values; writes outside this range are rejected
const (
	MinDecimals int32 = 5
	MaxDecimals int32 = 8
)

// AnchorExpiries are the calibrated expiry buckets, in days, ascending
// A request between anchors resolves to the smallest anchor at or above it
var AnchorExpiries = []int32{1, 2, 7, 14, 21, 28}

// Point is one calibrated entry of the volatility surface
type Point struct {
	PairID uuid.UUID `db:"pair_id"`

	// Expiry bucket, days
	ExpiryDays int32 `db:"expiry_days"`

	// Moneyness bucket: round(strike/spot * 100), integer percent
	Moneyness int32 `db:"moneyness"`

	// IV as a fixed-point mantissa at Decimals precision
	IV       decimal.Decimal `db:"iv"`
	Decimals int32           `db:"decimals"`

	UpdatedAt time.Time `db:"updated_at"`
}

// Value returns the IV rescaled to a plain decimal (1.0 == 100% annualized vol)
func (p *Point) Value() decimal.Decimal {
	return p.IV.Shift(-p.Decimals)
}

// ValidDecimals reports whether a declared precision is acceptable
func ValidDecimals(d int32) bool {
	return d >= MinDecimals && d <= MaxDecimals
}

// AtTheMoney is the moneyness bucket for strike == spot
const AtTheMoney int32 = 100
