package pair

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Registry defines the read-only contract against the external asset pair registry
// The engine never mutates registry state
type Registry interface {
	// GetByID retrieves a pair by ID
	GetByID(ctx context.Context, id uuid.UUID) (*AssetPair, error)

	// IsActive reports whether a pair is registered and activated for trading
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)

	// PurchaseLimit returns the minimum underlying units per single trade
	PurchaseLimit(ctx context.Context, id uuid.UUID) (decimal.Decimal, error)

	// ExpiryBounds returns the allowed expiry window in days
	ExpiryBounds(ctx context.Context, id uuid.UUID) (min, max int32, err error)
}
