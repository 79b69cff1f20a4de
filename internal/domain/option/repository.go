package option

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for option persistence
type Repository interface {
	// Create inserts a new option in pending state
	Create(ctx context.Context, o *Option) error

	// GetByID retrieves an option with its pool locks
	GetByID(ctx context.Context, id uuid.UUID) (*Option, error)

	// GetActiveExpiredBefore retrieves active options whose expiration is at or
	// before the deadline, oldest first
	GetActiveExpiredBefore(ctx context.Context, deadline time.Time, limit int) ([]*Option, error)

	// GetByHolder retrieves all options bought by a settlement account
	GetByHolder(ctx context.Context, holder string) ([]*Option, error)

	// SetStatus transitions an option from one status to another
	// Returns ErrInvalidState if the option is not currently in the from status
	SetStatus(ctx context.Context, id uuid.UUID, from, to Status) error

	// MarkUnlocked stamps the collateral release time on a terminal option
	MarkUnlocked(ctx context.Context, id uuid.UUID, at time.Time) error

	// SaveLocks persists the per-pool collateral shares for an option
	SaveLocks(ctx context.Context, id uuid.UUID, locks []Lock) error
}
