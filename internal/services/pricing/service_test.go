package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hyperion/internal/domain/oracle"
	"hyperion/internal/domain/pair"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"

	"hyperion/internal/domain/option"
)

func testLogger() *logger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLogger.Sugar()}
}

// MockRegistry is a mock for pair.Registry
type MockRegistry struct {
	getByIDFunc func(context.Context, uuid.UUID) (*pair.AssetPair, error)
}

func (m *MockRegistry) GetByID(ctx context.Context, id uuid.UUID) (*pair.AssetPair, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, errors.ErrNotFound
}

func (m *MockRegistry) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return false, nil
	}
	return p.Active, nil
}

func (m *MockRegistry) PurchaseLimit(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return p.PurchaseLimit, nil
}

func (m *MockRegistry) ExpiryBounds(ctx context.Context, id uuid.UUID) (int32, int32, error) {
	p, err := m.GetByID(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	return p.MinExpiryDays, p.MaxExpiryDays, nil
}

// MockPriceSource is a mock for oracle.PriceSource
type MockPriceSource struct {
	getPriceFunc func(context.Context, uuid.UUID) (*oracle.Quote, error)
}

func (m *MockPriceSource) GetUnderlyingPrice(ctx context.Context, pairID uuid.UUID) (*oracle.Quote, error) {
	if m.getPriceFunc != nil {
		return m.getPriceFunc(ctx, pairID)
	}
	return nil, errors.ErrNoAggregator
}

// MockIVSource is a mock for oracle.IVSource
type MockIVSource struct {
	getIVFunc func(context.Context, uuid.UUID, int32, decimal.Decimal, decimal.Decimal) (*oracle.Quote, error)
}

func (m *MockIVSource) GetIV(ctx context.Context, pairID uuid.UUID, expiryDays int32, spot, strike decimal.Decimal) (*oracle.Quote, error) {
	if m.getIVFunc != nil {
		return m.getIVFunc(ctx, pairID, expiryDays, spot, strike)
	}
	return nil, errors.ErrNoAggregator
}

// MockFeeResolver is a mock for fees.Resolver
type MockFeeResolver struct {
	transactionBps int64
	settlementBps  int64
}

func (m *MockFeeResolver) TransactionFeeBps(ctx context.Context, account string) (int64, error) {
	return m.transactionBps, nil
}

func (m *MockFeeResolver) SettlementFeeBps(ctx context.Context, account string) (int64, error) {
	return m.settlementBps, nil
}

func activePair(id uuid.UUID) *pair.AssetPair {
	return &pair.AssetPair{
		ID:            id,
		Base:          "ETH",
		Quote:         "USD",
		Active:        true,
		PurchaseLimit: decimal.RequireFromString("0.01"),
		MinExpiryDays: 1,
		MaxExpiryDays: 28,
	}
}

func newTestService(registry *MockRegistry, prices *MockPriceSource, ivs *MockIVSource, fees *MockFeeResolver) *Service {
	return NewService(registry, prices, ivs, fees, testLogger())
}

func TestService_Price_AtTheMoney(t *testing.T) {
	pairID := uuid.New()

	registry := &MockRegistry{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*pair.AssetPair, error) {
			return activePair(id), nil
		},
	}
	prices := &MockPriceSource{
		getPriceFunc: func(context.Context, uuid.UUID) (*oracle.Quote, error) {
			// 1600.00000000 at 8 decimals
			return &oracle.Quote{Value: decimal.NewFromInt(160000000000), Decimals: 8, UpdatedAt: time.Now()}, nil
		},
	}
	ivs := &MockIVSource{
		getIVFunc: func(context.Context, uuid.UUID, int32, decimal.Decimal, decimal.Decimal) (*oracle.Quote, error) {
			// 1.80000 at 5 decimals
			return &oracle.Quote{Value: decimal.NewFromInt(180000), Decimals: 5, UpdatedAt: time.Now()}, nil
		},
	}
	svc := newTestService(registry, prices, ivs, &MockFeeResolver{transactionBps: 100})

	quote, err := svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 1,
		decimal.NewFromInt(1), decimal.NewFromInt(1600))
	require.NoError(t, err)

	// Closed-form zero-rate ATM 1-day value at 180% vol
	assert.InDelta(t, 60.1167530, quote.Premium.InexactFloat64(), 1e-3)

	// 100 bps transaction fee on top of the premium
	expectedFee := quote.Premium.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(10000))
	assert.True(t, quote.Fee.Sub(expectedFee).Abs().LessThan(decimal.RequireFromString("0.000001")))

	assert.True(t, quote.Spot.Equal(decimal.NewFromInt(1600)))
	assert.True(t, quote.IVUsed.Equal(decimal.RequireFromString("1.8")))
	assert.True(t, quote.Total().Equal(quote.Premium.Add(quote.Fee)))

	// Premium scales linearly with amount
	bigger, err := svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 1,
		decimal.NewFromInt(2), decimal.NewFromInt(1600))
	require.NoError(t, err)
	assert.True(t, bigger.Premium.Equal(quote.Premium.Mul(decimal.NewFromInt(2))))
}

func TestService_Price_PurchaseLimit(t *testing.T) {
	pairID := uuid.New()

	registry := &MockRegistry{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*pair.AssetPair, error) {
			return activePair(id), nil
		},
	}
	prices := &MockPriceSource{
		getPriceFunc: func(context.Context, uuid.UUID) (*oracle.Quote, error) {
			return &oracle.Quote{Value: decimal.NewFromInt(160000000000), Decimals: 8, UpdatedAt: time.Now()}, nil
		},
	}
	ivs := &MockIVSource{
		getIVFunc: func(context.Context, uuid.UUID, int32, decimal.Decimal, decimal.Decimal) (*oracle.Quote, error) {
			return &oracle.Quote{Value: decimal.NewFromInt(180000), Decimals: 5, UpdatedAt: time.Now()}, nil
		},
	}
	svc := newTestService(registry, prices, ivs, &MockFeeResolver{})

	// Below the 0.01 purchase limit
	_, err := svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 7,
		decimal.RequireFromString("0.005"), decimal.NewFromInt(1600))
	assert.ErrorIs(t, err, errors.ErrAmountTooSmall)

	// At the limit succeeds
	_, err = svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 7,
		decimal.RequireFromString("0.01"), decimal.NewFromInt(1600))
	assert.NoError(t, err)
}

func TestService_Price_Validation(t *testing.T) {
	pairID := uuid.New()

	registry := &MockRegistry{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*pair.AssetPair, error) {
			return activePair(id), nil
		},
	}
	svc := newTestService(registry, &MockPriceSource{}, &MockIVSource{}, &MockFeeResolver{})

	amount := decimal.NewFromInt(1)
	strike := decimal.NewFromInt(1600)

	_, err := svc.Price(context.Background(), "buyer", pairID, option.Type("straddle"), 7, amount, strike)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 7, amount, decimal.Zero)
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	_, err = svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 60, amount, strike)
	assert.ErrorIs(t, err, errors.ErrExpiryOutOfRange)
}

func TestService_Price_PairGate(t *testing.T) {
	// Unregistered pair
	svc := newTestService(&MockRegistry{}, &MockPriceSource{}, &MockIVSource{}, &MockFeeResolver{})

	_, err := svc.Price(context.Background(), "buyer", uuid.New(), option.TypeCall, 7,
		decimal.NewFromInt(1), decimal.NewFromInt(1600))
	assert.ErrorIs(t, err, errors.ErrInvalidAssetPair)

	// Registered but disabled
	registry := &MockRegistry{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*pair.AssetPair, error) {
			p := activePair(id)
			p.Active = false
			return p, nil
		},
	}
	svc = newTestService(registry, &MockPriceSource{}, &MockIVSource{}, &MockFeeResolver{})

	_, err = svc.Price(context.Background(), "buyer", uuid.New(), option.TypeCall, 7,
		decimal.NewFromInt(1), decimal.NewFromInt(1600))
	assert.ErrorIs(t, err, errors.ErrInvalidAssetPair)
}

func TestService_Price_OracleFailures(t *testing.T) {
	pairID := uuid.New()

	registry := &MockRegistry{
		getByIDFunc: func(_ context.Context, id uuid.UUID) (*pair.AssetPair, error) {
			return activePair(id), nil
		},
	}

	// No price aggregator registered
	svc := newTestService(registry, &MockPriceSource{}, &MockIVSource{}, &MockFeeResolver{})
	_, err := svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 7,
		decimal.NewFromInt(1), decimal.NewFromInt(1600))
	assert.ErrorIs(t, err, errors.ErrNoAggregator)

	// Stale IV propagates ErrOutOfSync
	prices := &MockPriceSource{
		getPriceFunc: func(context.Context, uuid.UUID) (*oracle.Quote, error) {
			return &oracle.Quote{Value: decimal.NewFromInt(160000000000), Decimals: 8, UpdatedAt: time.Now()}, nil
		},
	}
	ivs := &MockIVSource{
		getIVFunc: func(context.Context, uuid.UUID, int32, decimal.Decimal, decimal.Decimal) (*oracle.Quote, error) {
			return nil, errors.Wrap(errors.ErrOutOfSync, "iv point stale")
		},
	}
	svc = newTestService(registry, prices, ivs, &MockFeeResolver{})
	_, err = svc.Price(context.Background(), "buyer", pairID, option.TypeCall, 7,
		decimal.NewFromInt(1), decimal.NewFromInt(1600))
	assert.ErrorIs(t, err, errors.ErrOutOfSync)
}
