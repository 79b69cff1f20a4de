package liquidity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/pool"
	"hyperion/internal/metrics"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

// Service is the liquidity ledger: per-provider, per-pool deposit and
// withdrawal accounting with day-bucketed active liquidity snapshots
//
// Every mutating operation runs inside one unit of work; a failed call
// leaves all balances exactly as before
type Service struct {
	uow pool.UnitOfWork
	log *logger.Logger

	// Injected for tests
	now func() time.Time
}

// NewService creates a new liquidity ledger service
func NewService(uow pool.UnitOfWork, log *logger.Logger) *Service {
	return &Service{
		uow: uow,
		log: log,
		now: time.Now,
	}
}

// Deposit credits a provider's liquidity into a pool
func (s *Service) Deposit(ctx context.Context, provider string, poolID uuid.UUID, amount decimal.Decimal) error {
	if provider == "" {
		return errors.Wrap(errors.ErrInvalidAddress, "empty provider account")
	}
	if amount.Sign() <= 0 {
		return errors.Wrapf(errors.ErrAmountTooSmall, "deposit amount %s", amount)
	}

	today := pool.DayOf(s.now())

	err := s.uow.Do(ctx, func(repo pool.Repository) error {
		p, err := repo.GetPoolForUpdate(ctx, poolID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.Wrapf(errors.ErrInvalidID, "pool %s", poolID)
			}
			return err
		}

		prior, err := repo.ProviderPoolBalance(ctx, provider, poolID)
		if err != nil {
			return err
		}

		entry := &pool.ProviderPosition{
			ID:               uuid.New(),
			Provider:         provider,
			PoolID:           poolID,
			TransactionValue: amount,
			CurrentBalance:   prior.Add(amount),
			DepositDay:       today,
			CreatedAt:        s.now(),
		}
		if err := repo.AppendPosition(ctx, entry); err != nil {
			return err
		}

		if err := repo.UpdatePoolBalances(ctx, poolID, p.TotalBalance.Add(amount), p.LockedBalance); err != nil {
			return err
		}

		return repo.BumpDayLiquidity(ctx, poolID, today, amount)
	})
	if err != nil {
		return err
	}

	metrics.LiquidityDeposited.Add(amount.InexactFloat64())
	s.log.Infow("liquidity deposited",
		"provider", provider,
		"pool_id", poolID,
		"amount", amount,
	)
	return nil
}

// Withdraw debits a provider's liquidity from a pool's available balance
// The amount is bounded by both the pool's available balance and the
// provider's own cumulative deposited share
func (s *Service) Withdraw(ctx context.Context, provider string, poolID uuid.UUID, amount decimal.Decimal) error {
	if provider == "" {
		return errors.Wrap(errors.ErrInvalidAddress, "empty provider account")
	}
	if amount.Sign() <= 0 {
		return errors.Wrapf(errors.ErrAmountTooSmall, "withdraw amount %s", amount)
	}

	today := pool.DayOf(s.now())

	err := s.uow.Do(ctx, func(repo pool.Repository) error {
		p, err := repo.GetPoolForUpdate(ctx, poolID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.Wrapf(errors.ErrInvalidID, "pool %s", poolID)
			}
			return err
		}

		if amount.GreaterThan(p.Available()) {
			return errors.Wrapf(errors.ErrInsufficientPoolFunds,
				"withdraw %s exceeds available %s in pool %s", amount, p.Available(), poolID)
		}

		prior, err := repo.ProviderPoolBalance(ctx, provider, poolID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(prior) {
			return errors.Wrapf(errors.ErrAmountTooLarge,
				"withdraw %s exceeds provider balance %s", amount, prior)
		}

		entry := &pool.ProviderPosition{
			ID:               uuid.New(),
			Provider:         provider,
			PoolID:           poolID,
			TransactionValue: amount.Neg(),
			CurrentBalance:   prior.Sub(amount),
			DepositDay:       today,
			CreatedAt:        s.now(),
		}
		if err := repo.AppendPosition(ctx, entry); err != nil {
			return err
		}

		if err := repo.UpdatePoolBalances(ctx, poolID, p.TotalBalance.Sub(amount), p.LockedBalance); err != nil {
			return err
		}

		// Current day's bucket only; settled snapshots stay immutable
		return repo.BumpDayLiquidity(ctx, poolID, today, amount.Neg())
	})
	if err != nil {
		return err
	}

	metrics.LiquidityWithdrawn.Add(amount.InexactFloat64())
	s.log.Infow("liquidity withdrawn",
		"provider", provider,
		"pool_id", poolID,
		"amount", amount,
	)
	return nil
}

// DayActiveLiquidity returns a pool's active liquidity snapshot for a day
func (s *Service) DayActiveLiquidity(ctx context.Context, poolID uuid.UUID, day pool.Day) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := s.uow.Do(ctx, func(repo pool.Repository) error {
		var err error
		out, err = repo.DayLiquidity(ctx, poolID, day)
		return err
	})
	return out, err
}

// USDBalanceOf returns a provider's aggregate balance across all pools
func (s *Service) USDBalanceOf(ctx context.Context, provider string) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := s.uow.Do(ctx, func(repo pool.Repository) error {
		var err error
		out, err = repo.ProviderBalance(ctx, provider)
		return err
	})
	return out, err
}

// DistributePremium credits a settled day's collected premium pro-rata to the
// providers whose liquidity was active that day
//
// The day must lie strictly before the current day. Distribution is
// idempotent per (pool, day, provider): already-credited providers are
// skipped, so repeating the call never double-credits
func (s *Service) DistributePremium(ctx context.Context, poolID uuid.UUID, day pool.Day, providers []string) (decimal.Decimal, error) {
	today := pool.DayOf(s.now())
	if day >= today {
		return decimal.Zero, errors.Wrapf(errors.ErrInvalidDate, "day %d has not settled (today %d)", day, today)
	}

	credited := decimal.Zero
	err := s.uow.Do(ctx, func(repo pool.Repository) error {
		p, err := repo.GetPoolForUpdate(ctx, poolID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.Wrapf(errors.ErrInvalidID, "pool %s", poolID)
			}
			return err
		}

		premium, err := repo.AccruedPremium(ctx, poolID, day)
		if err != nil {
			return err
		}
		if premium.Sign() <= 0 {
			return nil
		}

		dayLiq, err := repo.DayLiquidity(ctx, poolID, day)
		if err != nil {
			return err
		}
		if dayLiq.Sign() <= 0 {
			s.log.Warnw("premium accrued with no active liquidity",
				"pool_id", poolID, "day", day, "premium", premium)
			return nil
		}

		if len(providers) == 0 {
			providers, err = repo.PoolProviders(ctx, poolID)
			if err != nil {
				return err
			}
		}

		for _, provider := range providers {
			balance, err := repo.ProviderPoolBalanceAsOf(ctx, provider, poolID, day)
			if err != nil {
				return err
			}
			if balance.Sign() <= 0 {
				continue
			}

			share := premium.Mul(balance).DivRound(dayLiq, 24).RoundDown(18)
			if share.Sign() <= 0 {
				continue
			}

			inserted, err := repo.InsertDistribution(ctx, &pool.PremiumDistribution{
				ID:        uuid.New(),
				PoolID:    poolID,
				Day:       day,
				Provider:  provider,
				Amount:    share,
				CreatedAt: s.now(),
			})
			if err != nil {
				return err
			}
			if !inserted {
				// Already credited for this day
				continue
			}

			prior, err := repo.ProviderPoolBalance(ctx, provider, poolID)
			if err != nil {
				return err
			}
			entry := &pool.ProviderPosition{
				ID:               uuid.New(),
				Provider:         provider,
				PoolID:           poolID,
				TransactionValue: share,
				CurrentBalance:   prior.Add(share),
				DepositDay:       today,
				CreatedAt:        s.now(),
			}
			if err := repo.AppendPosition(ctx, entry); err != nil {
				return err
			}

			credited = credited.Add(share)
		}

		if credited.Sign() <= 0 {
			return nil
		}

		if err := repo.UpdatePoolBalances(ctx, poolID, p.TotalBalance.Add(credited), p.LockedBalance); err != nil {
			return err
		}
		return repo.BumpDayLiquidity(ctx, poolID, today, credited)
	})
	if err != nil {
		return decimal.Zero, err
	}

	if credited.Sign() > 0 {
		metrics.PremiumDistributed.Add(credited.InexactFloat64())
		s.log.Infow("premium distributed",
			"pool_id", poolID,
			"day", day,
			"credited", credited,
		)
	}
	return credited, nil
}

// UndistributedDays lists (pool, day) premium accruals before today that
// have not been distributed yet; consumed by the distribution worker
func (s *Service) UndistributedDays(ctx context.Context) ([]pool.PremiumDay, error) {
	var out []pool.PremiumDay
	err := s.uow.Do(ctx, func(repo pool.Repository) error {
		var err error
		out, err = repo.UndistributedPremiumDays(ctx, pool.DayOf(s.now()))
		return err
	})
	return out, err
}
