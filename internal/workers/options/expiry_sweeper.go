package options

import (
	"context"
	"time"

	"hyperion/internal/services/settlement"
	"hyperion/internal/workers"
	"hyperion/pkg/auth"
)

// ExpirySweeper settles active options that crossed their expiration
// In-the-money options are exercised at the current spot, the rest have
// their collateral released back to the pools
type ExpirySweeper struct {
	*workers.BaseWorker
	settler   *settlement.Service
	cap       auth.Capability
	batchSize int
}

// NewExpirySweeper creates a new expiry sweep worker
func NewExpirySweeper(
	settler *settlement.Service,
	cap auth.Capability,
	batchSize int,
	interval time.Duration,
	enabled bool,
) *ExpirySweeper {
	return &ExpirySweeper{
		BaseWorker: workers.NewBaseWorker("expiry_sweeper", interval, enabled),
		settler:    settler,
		cap:        cap,
		batchSize:  batchSize,
	}
}

// Run executes one sweep iteration
func (w *ExpirySweeper) Run(ctx context.Context) error {
	res, err := w.settler.ExpirySweep(ctx, w.cap, w.batchSize)
	if err != nil {
		return err
	}

	if res.Scanned == 0 {
		w.Log().Debug("No expired options to settle")
		return nil
	}

	w.Log().Info("Expiry sweep complete",
		"scanned", res.Scanned,
		"exercised", res.Exercised,
		"expired", res.Expired,
		"failed", res.Failed,
	)

	return nil
}
