package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/fees"
	"hyperion/internal/domain/option"
	"hyperion/internal/domain/oracle"
	"hyperion/internal/domain/pair"
	"hyperion/internal/metrics"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

var bpsDenominator = decimal.NewFromInt(10000)

// Quote is a priced option premium with its fee breakdown
type Quote struct {
	// Premium in quote-asset units for the full amount
	Premium decimal.Decimal

	// Transaction fee charged on top of the premium
	Fee decimal.Decimal

	// Annualized implied volatility used by the model
	IVUsed decimal.Decimal

	// Normalized spot at quoting time
	Spot decimal.Decimal
}

// Total returns premium plus fee
func (q *Quote) Total() decimal.Decimal {
	return q.Premium.Add(q.Fee)
}

// Service computes option premiums from live oracle inputs
//
// All monetary values are normalized to plain decimals before any
// multiplication: the price oracle's declared decimals (typically 8) and the
// IV source's declared decimals (5 to 8) are rescaled first, so mixed-scale
// fixed-point inputs never meet in one product.
type Service struct {
	registry pair.Registry
	prices   oracle.PriceSource
	ivs      oracle.IVSource
	fees     fees.Resolver
	log      *logger.Logger
}

// NewService creates a new premium pricing service
func NewService(registry pair.Registry, prices oracle.PriceSource, ivs oracle.IVSource, fees fees.Resolver, log *logger.Logger) *Service {
	return &Service{
		registry: registry,
		prices:   prices,
		ivs:      ivs,
		fees:     fees,
		log:      log,
	}
}

// Price quotes an option premium for the given account and terms
func (s *Service) Price(ctx context.Context, account string, pairID uuid.UUID, typ option.Type, expiryDays int32, amount, strike decimal.Decimal) (quote *Quote, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.PremiumsQuoted.WithLabelValues(typ.String(), status).Inc()
		metrics.QuoteLatency.WithLabelValues(typ.String()).Observe(time.Since(start).Seconds())
	}()

	if !typ.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown option type %q", typ)
	}
	if strike.Sign() <= 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "strike must be positive")
	}

	p, err := s.registry.GetByID(ctx, pairID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Wrapf(errors.ErrInvalidAssetPair, "pair %s not registered", pairID)
		}
		return nil, errors.Wrap(err, "failed to load asset pair")
	}
	if !p.Active || !p.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidAssetPair, "pair %s inactive", p.Symbol())
	}

	if amount.LessThan(p.PurchaseLimit) {
		return nil, errors.Wrapf(errors.ErrAmountTooSmall,
			"amount %s below purchase limit %s for %s", amount, p.PurchaseLimit, p.Symbol())
	}

	if !p.ExpiryInRange(expiryDays) {
		return nil, errors.Wrapf(errors.ErrExpiryOutOfRange,
			"expiry %dd outside [%d,%d] for %s", expiryDays, p.MinExpiryDays, p.MaxExpiryDays, p.Symbol())
	}

	spotQuote, err := s.prices.GetUnderlyingPrice(ctx, pairID)
	if err != nil {
		return nil, err
	}
	spot := spotQuote.Normalized()

	ivQuote, err := s.ivs.GetIV(ctx, pairID, expiryDays, spot, strike)
	if err != nil {
		return nil, err
	}
	iv := ivQuote.Normalized()

	premium := unitPremium(typ, spot, strike, expiryDays, iv).Mul(amount)

	feeBps, err := s.fees.TransactionFeeBps(ctx, account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve transaction fee")
	}
	fee := premium.Mul(decimal.NewFromInt(feeBps)).Div(bpsDenominator).Round(18)

	s.log.Debugw("option priced",
		"pair_id", pairID,
		"type", typ,
		"expiry_days", expiryDays,
		"amount", amount,
		"strike", strike,
		"spot", spot,
		"iv", iv,
		"premium", premium,
		"fee", fee,
	)

	return &Quote{
		Premium: premium,
		Fee:     fee,
		IVUsed:  iv,
		Spot:    spot,
	}, nil
}
