package volatility

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/oracle"
	"hyperion/internal/domain/volatility"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

// Compile-time check
var _ oracle.IVSource = (*Service)(nil)

// Service resolves implied volatility from the calibrated surface
//
// Lookup policy: moneyness buckets are stored sparsely, so the resolver takes
// the nearest stored bucket at or below the requested one for the exact
// (pair, expiry). When the expiry itself has no calibration, it falls back to
// the smallest calibrated expiry at or above the requested days, else the
// largest calibrated expiry. Selection is ordered, never interpolated across
// expiries, so lock outcomes stay reproducible.
type Service struct {
	surface volatility.Surface
	log     *logger.Logger

	// Returned for at-the-money lookups with no calibrated entry
	defaultIV         decimal.Decimal
	defaultIVDecimals int32

	// A point older than this fails with ErrOutOfSync
	stalenessThreshold time.Duration

	// Injected for tests
	now func() time.Time
}

// NewService creates a new volatility resolver
func NewService(surface volatility.Surface, defaultIV decimal.Decimal, defaultIVDecimals int32, stalenessThreshold time.Duration, log *logger.Logger) *Service {
	return &Service{
		surface:            surface,
		log:                log,
		defaultIV:          defaultIV,
		defaultIVDecimals:  defaultIVDecimals,
		stalenessThreshold: stalenessThreshold,
		now:                time.Now,
	}
}

// Moneyness returns the integer percentage bucket round(strike/spot * 100)
func Moneyness(spot, strike decimal.Decimal) int32 {
	return int32(strike.Div(spot).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// GetIV implements oracle.IVSource against the calibrated surface
func (s *Service) GetIV(ctx context.Context, pairID uuid.UUID, expiryDays int32, spot, strike decimal.Decimal) (*oracle.Quote, error) {
	if spot.Sign() <= 0 || strike.Sign() <= 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "spot and strike must be positive")
	}

	moneyness := Moneyness(spot, strike)

	point, err := s.resolve(ctx, pairID, expiryDays, moneyness)
	if err != nil {
		if moneyness == volatility.AtTheMoney && (errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrNoAggregator)) {
			// ATM with no calibrated entry uses the configured default,
			// whether the bucket is missing or the pair has no surface at all
			return &oracle.Quote{
				Value:     s.defaultIV,
				Decimals:  s.defaultIVDecimals,
				UpdatedAt: s.now(),
			}, nil
		}
		return nil, err
	}

	if s.now().Sub(point.UpdatedAt) > s.stalenessThreshold {
		return nil, errors.Wrapf(errors.ErrOutOfSync,
			"iv point pair=%s expiry=%dd moneyness=%d updated_at=%s",
			pairID, point.ExpiryDays, point.Moneyness, point.UpdatedAt.Format(time.RFC3339))
	}

	return &oracle.Quote{
		Value:     point.IV,
		Decimals:  point.Decimals,
		UpdatedAt: point.UpdatedAt,
	}, nil
}

// resolve finds the calibrated point serving (expiryDays, moneyness)
func (s *Service) resolve(ctx context.Context, pairID uuid.UUID, expiryDays, moneyness int32) (*volatility.Point, error) {
	// Exact expiry bucket, floor moneyness match
	point, err := s.surface.FloorPoint(ctx, pairID, expiryDays, moneyness)
	if err == nil {
		return point, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	// Fall back to the nearest calibrated expiry bucket
	expiries, err := s.surface.Expiries(ctx, pairID)
	if err != nil {
		return nil, err
	}
	if len(expiries) == 0 {
		return nil, errors.Wrapf(errors.ErrNoAggregator, "no volatility surface for pair %s", pairID)
	}

	fallback := selectExpiry(expiries, expiryDays)
	if fallback == expiryDays {
		// The exact bucket exists but holds no bucket at or below the
		// requested moneyness
		return nil, errors.Wrapf(errors.ErrNotFound,
			"no moneyness bucket <= %d for pair %s expiry %dd", moneyness, pairID, expiryDays)
	}

	s.log.Debugw("volatility expiry fallback",
		"pair_id", pairID,
		"requested_days", expiryDays,
		"anchor_days", fallback,
	)

	point, err = s.surface.FloorPoint(ctx, pairID, fallback, moneyness)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrNotFound,
				"no moneyness bucket <= %d for pair %s anchor expiry %dd", moneyness, pairID, fallback)
		}
		return nil, err
	}
	return point, nil
}

// selectExpiry picks the smallest calibrated expiry at or above the requested
// days, else the largest calibrated expiry; expiries must be ascending
func selectExpiry(expiries []int32, days int32) int32 {
	for _, e := range expiries {
		if e >= days {
			return e
		}
	}
	return expiries[len(expiries)-1]
}

// Calibrate writes a point to the surface on behalf of the oracle manager
// Decimals outside the allowed range are rejected before hitting storage
func (s *Service) Calibrate(ctx context.Context, point *volatility.Point) error {
	if !volatility.ValidDecimals(point.Decimals) {
		return errors.Wrapf(errors.ErrInvalidInput,
			"iv decimals %d outside [%d,%d]", point.Decimals, volatility.MinDecimals, volatility.MaxDecimals)
	}
	if point.IV.Sign() <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "iv must be positive")
	}
	if point.UpdatedAt.IsZero() {
		point.UpdatedAt = s.now()
	}

	if err := s.surface.Upsert(ctx, point); err != nil {
		return errors.Wrap(err, "failed to upsert volatility point")
	}

	s.log.Infow("volatility point calibrated",
		"pair_id", point.PairID,
		"expiry_days", point.ExpiryDays,
		"moneyness", point.Moneyness,
		"iv", point.IV,
		"decimals", point.Decimals,
	)
	return nil
}
