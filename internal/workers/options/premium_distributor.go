package options

import (
	"context"
	"time"

	"hyperion/internal/domain/pool"
	"hyperion/internal/events"
	"hyperion/internal/services/liquidity"
	"hyperion/internal/workers"
)

// PremiumDistributor credits settled days' accrued premium to the providers
// that backed each pool on those days
//
// A day settles once it is fully in the past; distribution is idempotent so
// re-running after a partial failure only fills the gaps
type PremiumDistributor struct {
	*workers.BaseWorker
	liquidity *liquidity.Service
	pools     pool.Repository
	publisher *events.Publisher
}

// NewPremiumDistributor creates a new premium distribution worker
func NewPremiumDistributor(
	liquiditySvc *liquidity.Service,
	pools pool.Repository,
	publisher *events.Publisher,
	interval time.Duration,
	enabled bool,
) *PremiumDistributor {
	return &PremiumDistributor{
		BaseWorker: workers.NewBaseWorker("premium_distributor", interval, enabled),
		liquidity:  liquiditySvc,
		pools:      pools,
		publisher:  publisher,
	}
}

// Run executes one distribution iteration
func (w *PremiumDistributor) Run(ctx context.Context) error {
	days, err := w.liquidity.UndistributedDays(ctx)
	if err != nil {
		return err
	}

	if len(days) == 0 {
		w.Log().Debug("No undistributed premium days")
		return nil
	}

	distributed := 0
	for _, pd := range days {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		providers, err := w.pools.PoolProviders(ctx, pd.PoolID)
		if err != nil {
			w.Log().Error("Failed to list pool providers",
				"pool_id", pd.PoolID,
				"error", err,
			)
			continue
		}
		if len(providers) == 0 {
			continue
		}

		credited, err := w.liquidity.DistributePremium(ctx, pd.PoolID, pd.Day, providers)
		if err != nil {
			w.Log().Error("Failed to distribute premium",
				"pool_id", pd.PoolID,
				"day", pd.Day.Time().Format("2006-01-02"),
				"error", err,
			)
			continue
		}
		distributed++

		if credited.Sign() > 0 && w.publisher != nil {
			event := &events.PremiumDistributed{
				PoolID:    pd.PoolID,
				Day:       int32(pd.Day),
				Credited:  credited,
				Providers: len(providers),
				Timestamp: time.Now(),
			}
			if err := w.publisher.PublishPremiumDistributed(ctx, event); err != nil {
				w.Log().Error("Failed to publish distribution event", "error", err)
			}
		}
	}

	w.Log().Info("Premium distribution complete",
		"pending_days", len(days),
		"distributed", distributed,
	)

	return nil
}
