package pair

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetPair represents a tradable asset pair (e.g. ETH/USD)
// Pairs are created and maintained by the registry; the engine only reads them
type AssetPair struct {
	ID    uuid.UUID `db:"id"`
	Base  string    `db:"base_symbol"`
	Quote string    `db:"quote_symbol"`

	Active bool `db:"active"`

	// Minimum underlying units per single trade
	PurchaseLimit decimal.Decimal `db:"purchase_limit"`

	// Allowed expiry window, days
	MinExpiryDays int32 `db:"min_expiry_days"`
	MaxExpiryDays int32 `db:"max_expiry_days"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Valid reports whether the pair definition is internally consistent
func (p *AssetPair) Valid() bool {
	return p.Base != "" && p.Quote != "" && p.Base != p.Quote &&
		p.MinExpiryDays > 0 && p.MaxExpiryDays >= p.MinExpiryDays
}

// Symbol returns the canonical pair symbol, e.g. "ETH/USD"
func (p *AssetPair) Symbol() string {
	return p.Base + "/" + p.Quote
}

// ExpiryInRange reports whether an expiry in days lies within the pair's bounds
func (p *AssetPair) ExpiryInRange(days int32) bool {
	return days >= p.MinExpiryDays && days <= p.MaxExpiryDays
}
