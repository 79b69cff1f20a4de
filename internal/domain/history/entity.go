package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType classifies a settlement history record
type EventType string

const (
	EventBought      EventType = "bought"
	EventLocked      EventType = "locked"
	EventExercised   EventType = "exercised"
	EventExpired     EventType = "expired"
	EventDistributed EventType = "premium_distributed"
)

// Record is one append-only settlement history row for analytics
type Record struct {
	EventType EventType       `ch:"event_type"`
	OptionID  uuid.UUID       `ch:"option_id"`
	PairID    uuid.UUID       `ch:"pair_id"`
	PoolID    uuid.UUID       `ch:"pool_id"`
	Account   string          `ch:"account"`
	Amount    decimal.Decimal `ch:"amount"`
	Premium   decimal.Decimal `ch:"premium"`
	Fee       decimal.Decimal `ch:"fee"`
	Payout    decimal.Decimal `ch:"payout"`
	Spot      decimal.Decimal `ch:"spot"`
	Timestamp time.Time       `ch:"timestamp"`
}

// Repository defines the interface for settlement history persistence
type Repository interface {
	Insert(ctx context.Context, r *Record) error
	InsertBatch(ctx context.Context, records []*Record) error

	// DailyVolume returns the summed premium per day for a pair since a time
	DailyVolume(ctx context.Context, pairID uuid.UUID, since time.Time) (map[time.Time]decimal.Decimal, error)
}
