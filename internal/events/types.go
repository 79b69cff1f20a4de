package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event topic constants
const (
	// Option lifecycle events
	TopicOptionBought    = "options.bought"
	TopicOptionLocked    = "options.locked"
	TopicOptionExercised = "options.exercised"
	TopicOptionExpired   = "options.expired"

	// Liquidity events
	TopicPremiumDistributed = "liquidity.premium_distributed"
)

// PoolShare is one pool's collateral share of an option lock
type PoolShare struct {
	PoolID uuid.UUID       `json:"pool_id"`
	Amount decimal.Decimal `json:"amount"`
}

// OptionBought is emitted when an option is priced and created
type OptionBought struct {
	OptionID   uuid.UUID       `json:"option_id"`
	PairID     uuid.UUID       `json:"pair_id"`
	Holder     string          `json:"holder"`
	Type       string          `json:"type"`
	Amount     decimal.Decimal `json:"amount"`
	Strike     decimal.Decimal `json:"strike"`
	Premium    decimal.Decimal `json:"premium"`
	Fee        decimal.Decimal `json:"fee"`
	Expiration time.Time       `json:"expiration"`
	Timestamp  time.Time       `json:"timestamp"`
}

// OptionLocked is emitted when collateral is locked across the pool route
type OptionLocked struct {
	OptionID   uuid.UUID       `json:"option_id"`
	Collateral decimal.Decimal `json:"collateral"`
	Pools      []PoolShare     `json:"pools"`
	Timestamp  time.Time       `json:"timestamp"`
}

// OptionExercised is emitted on an in-the-money settlement; the payout is a
// loss from the pools' perspective
type OptionExercised struct {
	OptionID  uuid.UUID       `json:"option_id"`
	Holder    string          `json:"holder"`
	Payout    decimal.Decimal `json:"payout"`
	Fee       decimal.Decimal `json:"fee"`
	Spot      decimal.Decimal `json:"spot"`
	Pools     []PoolShare     `json:"pools"`
	Timestamp time.Time       `json:"timestamp"`
}

// OptionExpired is emitted when an option expires worthless; the returned
// collateral plus the accrued premium is a profit for the providers
type OptionExpired struct {
	OptionID  uuid.UUID       `json:"option_id"`
	Returned  decimal.Decimal `json:"returned"`
	Pools     []PoolShare     `json:"pools"`
	Timestamp time.Time       `json:"timestamp"`
}

// PremiumDistributed is emitted after a settled day's premium is credited
type PremiumDistributed struct {
	PoolID    uuid.UUID       `json:"pool_id"`
	Day       int32           `json:"day"`
	Credited  decimal.Decimal `json:"credited"`
	Providers int             `json:"providers"`
	Timestamp time.Time       `json:"timestamp"`
}
