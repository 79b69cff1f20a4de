package option

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type defines call or put
type Type string

const (
	TypeCall Type = "call"
	TypePut  Type = "put"
)

// Valid checks if the option type is valid
func (t Type) Valid() bool {
	return t == TypeCall || t == TypePut
}

// String returns string representation
func (t Type) String() string {
	return string(t)
}

// Status defines the option lifecycle status
//
// pending -> active (collateral locked) -> exercised | expired
// Both terminal states carry UnlockedAt for the moment collateral was released
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusExercised Status = "exercised"
	StatusExpired   Status = "expired"
)

// Valid checks if the status is valid
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExercised, StatusExpired:
		return true
	}
	return false
}

// String returns string representation
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status allows no further transitions
func (s Status) IsTerminal() bool {
	return s == StatusExercised || s == StatusExpired
}

// Option represents a bought option position
type Option struct {
	ID     uuid.UUID `db:"id"`
	PairID uuid.UUID `db:"pair_id"`

	// Settlement account of the buyer
	Holder string `db:"holder"`

	Type  Type   `db:"option_type"`
	Model string `db:"model"` // premium model tag, matches the pool strategy

	Strike decimal.Decimal `db:"strike"`
	Amount decimal.Decimal `db:"amount"` // underlying units

	Expiration time.Time `db:"expiration"`

	Premium decimal.Decimal `db:"premium"`
	Fee     decimal.Decimal `db:"fee"`

	Status     Status     `db:"status"`
	UnlockedAt *time.Time `db:"unlocked_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	// Collateral shares held against this option, in route order
	Locks []Lock `db:"-"`
}

// Lock records the collateral share drawn from a single pool
type Lock struct {
	OptionID uuid.UUID       `db:"option_id"`
	PoolID   uuid.UUID       `db:"pool_id"`
	Amount   decimal.Decimal `db:"amount"`
}

// LockedTotal returns the summed collateral across all pool shares
func (o *Option) LockedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Locks {
		total = total.Add(l.Amount)
	}
	return total
}

// Expired reports whether the option is past its expiration at the given time
func (o *Option) Expired(now time.Time) bool {
	return !now.Before(o.Expiration)
}

// Payout returns the intrinsic value of the option at the given spot price,
// scaled by amount; zero when out of the money
func (o *Option) Payout(spot decimal.Decimal) decimal.Decimal {
	var perUnit decimal.Decimal
	switch o.Type {
	case TypeCall:
		perUnit = spot.Sub(o.Strike)
	case TypePut:
		perUnit = o.Strike.Sub(spot)
	}
	if perUnit.Sign() <= 0 {
		return decimal.Zero
	}
	return perUnit.Mul(o.Amount)
}
