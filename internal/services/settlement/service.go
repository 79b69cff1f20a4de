package settlement

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/asset"
	"hyperion/internal/domain/fees"
	"hyperion/internal/domain/option"
	"hyperion/internal/domain/oracle"
	"hyperion/internal/domain/pool"
	"hyperion/internal/events"
	"hyperion/internal/metrics"
	"hyperion/internal/services/pricing"
	"hyperion/pkg/auth"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

var bpsDenominator = decimal.NewFromInt(10000)

// UnitOfWork runs settlement mutations transactionally: pool balance writes
// and option state transitions commit together or not at all
type UnitOfWork interface {
	Do(ctx context.Context, fn func(pools pool.Repository, options option.Repository) error) error
}

// PoolSelector picks the ordered pool route for a strategy key
type PoolSelector interface {
	SelectPools(ctx context.Context, pairID uuid.UUID, typ option.Type, model string, expiryDays int32) ([]uuid.UUID, error)
}

// Pricer quotes option premiums
type Pricer interface {
	Price(ctx context.Context, account string, pairID uuid.UUID, typ option.Type, expiryDays int32, amount, strike decimal.Decimal) (*pricing.Quote, error)
}

// EventSink receives lifecycle events after state is committed
type EventSink interface {
	PublishOptionBought(ctx context.Context, event *events.OptionBought) error
	PublishOptionLocked(ctx context.Context, event *events.OptionLocked) error
	PublishOptionExercised(ctx context.Context, event *events.OptionExercised) error
	PublishOptionExpired(ctx context.Context, event *events.OptionExpired) error
}

// Service is the lock/settlement controller
//
// It owns all mutation of pool locked/total balances on behalf of the option
// manager. Entry points are capability-gated, serialized per pool, and follow
// checks-effects-interactions: every balance change commits before any
// external transfer or swap call runs, so a re-entering collaborator observes
// fully settled state
type Service struct {
	uow      UnitOfWork
	options  option.Repository
	selector PoolSelector
	pricer   Pricer
	prices   oracle.PriceSource
	fees     fees.Resolver
	transfer asset.Transferor
	swapper  asset.Swapper
	keeper   *auth.Keeper
	sink     EventSink
	log      *logger.Logger

	locks *poolLockTable

	// Injected for tests
	now func() time.Time
}

// NewService creates a new settlement controller
func NewService(
	uow UnitOfWork,
	options option.Repository,
	selector PoolSelector,
	pricer Pricer,
	prices oracle.PriceSource,
	feeResolver fees.Resolver,
	transfer asset.Transferor,
	swapper asset.Swapper,
	keeper *auth.Keeper,
	sink EventSink,
	log *logger.Logger,
) *Service {
	return &Service{
		uow:      uow,
		options:  options,
		selector: selector,
		pricer:   pricer,
		prices:   prices,
		fees:     feeResolver,
		transfer: transfer,
		swapper:  swapper,
		keeper:   keeper,
		sink:     sink,
		log:      log,
		locks:    newPoolLockTable(),
		now:      time.Now,
	}
}

// OpenRequest describes a buy order forwarded by the option manager
type OpenRequest struct {
	Holder     string
	PairID     uuid.UUID
	Type       option.Type
	Model      string
	ExpiryDays int32
	Amount     decimal.Decimal
	Strike     decimal.Decimal
}

// Open prices an option, persists it and locks its collateral
// This is the full buy flow: quote, create pending, lock to active
//
// The pending row is created outside the lock transaction. When the lock
// fails the option stays pending and is retryable through Lock, which is
// also the standalone entry point for callers that create options upfront.
func (s *Service) Open(ctx context.Context, cap auth.Capability, req OpenRequest) (*option.Option, error) {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return nil, err
	}
	if req.Holder == "" {
		return nil, errors.Wrap(errors.ErrInvalidAddress, "empty holder account")
	}

	quote, err := s.pricer.Price(ctx, req.Holder, req.PairID, req.Type, req.ExpiryDays, req.Amount, req.Strike)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := &option.Option{
		ID:         uuid.New(),
		PairID:     req.PairID,
		Holder:     req.Holder,
		Type:       req.Type,
		Model:      req.Model,
		Strike:     req.Strike,
		Amount:     req.Amount,
		Expiration: now.Add(time.Duration(req.ExpiryDays) * 24 * time.Hour),
		Premium:    quote.Premium,
		Fee:        quote.Fee,
		Status:     option.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.options.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "failed to create option")
	}

	if err := s.lockOption(ctx, o, quote.Spot); err != nil {
		return nil, err
	}

	if err := s.sink.PublishOptionBought(ctx, &events.OptionBought{
		OptionID:   o.ID,
		PairID:     o.PairID,
		Holder:     o.Holder,
		Type:       o.Type.String(),
		Amount:     o.Amount,
		Strike:     o.Strike,
		Premium:    o.Premium,
		Fee:        o.Fee,
		Expiration: o.Expiration,
		Timestamp:  s.now(),
	}); err != nil {
		s.log.Errorf("failed to publish option bought event: %v", err)
	}

	return o, nil
}

// Lock locks collateral for a pending option across its pool route
func (s *Service) Lock(ctx context.Context, cap auth.Capability, optionID uuid.UUID) error {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return err
	}

	o, err := s.getOption(ctx, optionID)
	if err != nil {
		return err
	}
	if o.Status != option.StatusPending {
		return errors.Wrapf(errors.ErrInvalidState, "cannot lock option %s in status %s", o.ID, o.Status)
	}

	spotQuote, err := s.prices.GetUnderlyingPrice(ctx, o.PairID)
	if err != nil {
		return err
	}

	return s.lockOption(ctx, o, spotQuote.Normalized())
}

// lockOption draws collateral pool-by-pool in route order and accrues the
// premium to the drawn pools in proportion to their shares
func (s *Service) lockOption(ctx context.Context, o *option.Option, spot decimal.Decimal) error {
	collateral := s.collateral(o, spot)
	if collateral.Sign() <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "zero collateral for option %s", o.ID)
	}

	expiryDays := int32(o.Expiration.Sub(s.now()).Hours()/24) + 1
	poolIDs, err := s.selector.SelectPools(ctx, o.PairID, o.Type, o.Model, expiryDays)
	if err != nil {
		return err
	}

	unlock := s.locks.acquire(poolIDs)
	defer unlock()

	today := pool.DayOf(s.now())
	var locks []option.Lock

	err = s.uow.Do(ctx, func(repo pool.Repository, options option.Repository) error {
		remaining := collateral
		locks = locks[:0]

		for _, id := range poolIDs {
			if remaining.Sign() == 0 {
				break
			}
			p, err := repo.GetPoolForUpdate(ctx, id)
			if err != nil {
				return err
			}
			draw := decimal.Min(p.Available(), remaining)
			if draw.Sign() <= 0 {
				continue
			}

			if err := repo.UpdatePoolBalances(ctx, id, p.TotalBalance, p.LockedBalance.Add(draw)); err != nil {
				return err
			}
			locks = append(locks, option.Lock{OptionID: o.ID, PoolID: id, Amount: draw})
			remaining = remaining.Sub(draw)
		}

		if remaining.Sign() > 0 {
			return errors.Wrapf(errors.ErrInsufficientPoolLiquidity,
				"need %s, short %s across %d pools", collateral, remaining, len(poolIDs))
		}

		if err := options.SaveLocks(ctx, o.ID, locks); err != nil {
			return err
		}

		// Premium accrues to the drawn pools pro-rated by collateral share
		for _, l := range locks {
			share := o.Premium.Mul(l.Amount).DivRound(collateral, 24).RoundDown(18)
			if share.Sign() <= 0 {
				continue
			}
			if err := repo.AccruePremium(ctx, l.PoolID, today, share); err != nil {
				return err
			}
		}

		return options.SetStatus(ctx, o.ID, option.StatusPending, option.StatusActive)
	})
	if err != nil {
		return err
	}

	o.Status = option.StatusActive
	o.Locks = locks

	metrics.OptionsLocked.WithLabelValues(o.Type.String()).Inc()
	s.log.Infow("option collateral locked",
		"option_id", o.ID,
		"collateral", collateral,
		"pools", len(locks),
	)

	shares := make([]events.PoolShare, 0, len(locks))
	for _, l := range locks {
		shares = append(shares, events.PoolShare{PoolID: l.PoolID, Amount: l.Amount})
	}
	if err := s.sink.PublishOptionLocked(ctx, &events.OptionLocked{
		OptionID:   o.ID,
		Collateral: collateral,
		Pools:      shares,
		Timestamp:  s.now(),
	}); err != nil {
		s.log.Errorf("failed to publish option locked event: %v", err)
	}
	return nil
}

// collateral returns the quote-asset value reserved against the option:
// amount x strike for puts, amount x spot for calls
func (s *Service) collateral(o *option.Option, spot decimal.Decimal) decimal.Decimal {
	if o.Type == option.TypePut {
		return o.Amount.Mul(o.Strike)
	}
	return o.Amount.Mul(spot)
}

// Exercise settles an active in-the-money option: locked collateral is
// released, the payout leaves the pools (a loss from the providers'
// perspective) and the holder is paid in the quote asset
func (s *Service) Exercise(ctx context.Context, cap auth.Capability, optionID uuid.UUID) error {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return err
	}

	o, err := s.getOption(ctx, optionID)
	if err != nil {
		return err
	}
	if o.Status != option.StatusActive {
		return errors.Wrapf(errors.ErrInvalidState, "cannot exercise option %s in status %s", o.ID, o.Status)
	}

	spotQuote, err := s.prices.GetUnderlyingPrice(ctx, o.PairID)
	if err != nil {
		return err
	}
	spot := spotQuote.Normalized()

	payout := o.Payout(spot)
	if payout.Sign() <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "option %s is out of the money at spot %s", o.ID, spot)
	}
	// The pools' exposure is capped by the collateral they locked
	lockedTotal := o.LockedTotal()
	payout = decimal.Min(payout, lockedTotal)

	feeBps, err := s.fees.SettlementFeeBps(ctx, o.Holder)
	if err != nil {
		return errors.Wrap(err, "failed to resolve settlement fee")
	}
	fee := payout.Mul(decimal.NewFromInt(feeBps)).Div(bpsDenominator).Round(18)

	poolIDs := lockPoolIDs(o.Locks)
	unlock := s.locks.acquire(poolIDs)
	defer unlock()

	err = s.uow.Do(ctx, func(repo pool.Repository, options option.Repository) error {
		// Last pool takes the rounding remainder so shares sum exactly
		remaining := payout
		for i, l := range o.Locks {
			p, err := repo.GetPoolForUpdate(ctx, l.PoolID)
			if err != nil {
				return err
			}

			share := remaining
			if i < len(o.Locks)-1 {
				share = payout.Mul(l.Amount).DivRound(lockedTotal, 24).RoundDown(18)
			} else if share.GreaterThan(l.Amount) {
				// Rounding dust from the earlier shares must not push the
				// last pool past its own locked amount
				share = l.Amount
			}
			remaining = remaining.Sub(share)

			if err := repo.UpdatePoolBalances(ctx, l.PoolID,
				p.TotalBalance.Sub(share),
				p.LockedBalance.Sub(l.Amount),
			); err != nil {
				return err
			}
		}

		if err := options.SetStatus(ctx, o.ID, option.StatusActive, option.StatusExercised); err != nil {
			return err
		}
		return options.MarkUnlocked(ctx, o.ID, s.now())
	})
	if err != nil {
		return err
	}

	metrics.OptionsSettled.WithLabelValues("exercised").Inc()
	metrics.SettlementPayouts.Add(payout.InexactFloat64())
	s.log.Infow("option exercised",
		"option_id", o.ID,
		"payout", payout,
		"fee", fee,
		"spot", spot,
	)

	// State is committed; external transfer runs last
	if err := s.transfer.Transfer(ctx, o.Holder, payout.Sub(fee)); err != nil {
		return errors.Wrapf(err, "payout transfer for option %s", o.ID)
	}

	shares := make([]events.PoolShare, 0, len(o.Locks))
	for _, l := range o.Locks {
		shares = append(shares, events.PoolShare{PoolID: l.PoolID, Amount: l.Amount})
	}
	if err := s.sink.PublishOptionExercised(ctx, &events.OptionExercised{
		OptionID:  o.ID,
		Holder:    o.Holder,
		Payout:    payout,
		Fee:       fee,
		Spot:      spot,
		Pools:     shares,
		Timestamp: s.now(),
	}); err != nil {
		s.log.Errorf("failed to publish option exercised event: %v", err)
	}
	return nil
}

// Unlock releases the collateral of an active option that expired worthless
// Pool totals are unchanged, so the accrued premium stays with the providers
func (s *Service) Unlock(ctx context.Context, cap auth.Capability, optionID uuid.UUID) error {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return err
	}

	o, err := s.getOption(ctx, optionID)
	if err != nil {
		return err
	}
	if o.Status != option.StatusActive {
		return errors.Wrapf(errors.ErrInvalidState, "cannot unlock option %s in status %s", o.ID, o.Status)
	}
	if !o.Expired(s.now()) {
		return errors.Wrapf(errors.ErrInvalidState, "option %s has not expired", o.ID)
	}

	poolIDs := lockPoolIDs(o.Locks)
	unlock := s.locks.acquire(poolIDs)
	defer unlock()

	err = s.uow.Do(ctx, func(repo pool.Repository, options option.Repository) error {
		for _, l := range o.Locks {
			p, err := repo.GetPoolForUpdate(ctx, l.PoolID)
			if err != nil {
				return err
			}
			if err := repo.UpdatePoolBalances(ctx, l.PoolID,
				p.TotalBalance,
				p.LockedBalance.Sub(l.Amount),
			); err != nil {
				return err
			}
		}

		if err := options.SetStatus(ctx, o.ID, option.StatusActive, option.StatusExpired); err != nil {
			return err
		}
		return options.MarkUnlocked(ctx, o.ID, s.now())
	})
	if err != nil {
		return err
	}

	metrics.OptionsSettled.WithLabelValues("expired").Inc()
	s.log.Infow("option expired worthless",
		"option_id", o.ID,
		"returned", o.LockedTotal(),
	)

	shares := make([]events.PoolShare, 0, len(o.Locks))
	for _, l := range o.Locks {
		shares = append(shares, events.PoolShare{PoolID: l.PoolID, Amount: l.Amount})
	}
	if err := s.sink.PublishOptionExpired(ctx, &events.OptionExpired{
		OptionID:  o.ID,
		Returned:  o.LockedTotal(),
		Pools:     shares,
		Timestamp: s.now(),
	}); err != nil {
		s.log.Errorf("failed to publish option expired event: %v", err)
	}
	return nil
}

// Settle resolves an expired active option either way: exercised when in the
// money at the current spot, expired worthless otherwise
// Used by the expiry sweep worker
func (s *Service) Settle(ctx context.Context, cap auth.Capability, optionID uuid.UUID) error {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return err
	}

	o, err := s.getOption(ctx, optionID)
	if err != nil {
		return err
	}
	if o.Status != option.StatusActive || !o.Expired(s.now()) {
		return errors.Wrapf(errors.ErrInvalidState, "option %s not settleable", o.ID)
	}

	spotQuote, err := s.prices.GetUnderlyingPrice(ctx, o.PairID)
	if err != nil {
		return err
	}

	if o.Payout(spotQuote.Normalized()).Sign() > 0 {
		return s.Exercise(ctx, cap, optionID)
	}
	return s.Unlock(ctx, cap, optionID)
}

// Send transfers settlement value in the quote asset
func (s *Service) Send(ctx context.Context, cap auth.Capability, to string, amount decimal.Decimal) error {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return err
	}
	if to == "" {
		return errors.Wrap(errors.ErrInvalidAddress, "empty recipient")
	}
	if amount.Sign() <= 0 {
		return errors.Wrapf(errors.ErrAmountTooSmall, "send amount %s", amount)
	}
	return s.transfer.Transfer(ctx, to, amount)
}

// SendUA transfers settlement value swapped into the underlying asset via
// the external DEX collaborator
func (s *Service) SendUA(ctx context.Context, cap auth.Capability, fromAsset, toAsset, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return decimal.Zero, err
	}
	if to == "" {
		return decimal.Zero, errors.Wrap(errors.ErrInvalidAddress, "empty recipient")
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, errors.Wrapf(errors.ErrAmountTooSmall, "send amount %s", amount)
	}
	return s.swapper.Swap(ctx, fromAsset, toAsset, amount, to)
}

// getOption loads an option, mapping missing rows to ErrInvalidID
func (s *Service) getOption(ctx context.Context, id uuid.UUID) (*option.Option, error) {
	o, err := s.options.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrInvalidID, "option %s", id)
		}
		return nil, errors.Wrap(err, "failed to load option")
	}
	return o, nil
}

func lockPoolIDs(locks []option.Lock) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(locks))
	for _, l := range locks {
		ids = append(ids, l.PoolID)
	}
	return ids
}

// sortedCopy returns the ids sorted lexically; the lock table acquires in
// this order so overlapping routes cannot deadlock
func sortedCopy(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
