package allocator

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pool"
	"hyperion/pkg/auth"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

func testLogger() *logger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLogger.Sugar()}
}

// MockPoolRepository is a mock for pool.Repository covering the methods the
// allocator touches
type MockPoolRepository struct {
	pool.Repository

	getPoolFunc         func(context.Context, uuid.UUID) (*pool.Pool, error)
	poolsByStrategyFunc func(context.Context, uuid.UUID, option.Type, string) ([]*pool.Pool, error)
	saveRouteFunc       func(context.Context, *pool.Route) error
	getRouteFunc        func(context.Context, uuid.UUID, option.Type, string, int32) (*pool.Route, error)
}

func (m *MockPoolRepository) GetPool(ctx context.Context, id uuid.UUID) (*pool.Pool, error) {
	if m.getPoolFunc != nil {
		return m.getPoolFunc(ctx, id)
	}
	return nil, errors.ErrNotFound
}

func (m *MockPoolRepository) PoolsByStrategy(ctx context.Context, pairID uuid.UUID, typ option.Type, model string) ([]*pool.Pool, error) {
	if m.poolsByStrategyFunc != nil {
		return m.poolsByStrategyFunc(ctx, pairID, typ, model)
	}
	return nil, nil
}

func (m *MockPoolRepository) SaveRoute(ctx context.Context, r *pool.Route) error {
	if m.saveRouteFunc != nil {
		return m.saveRouteFunc(ctx, r)
	}
	return nil
}

func (m *MockPoolRepository) GetRoute(ctx context.Context, pairID uuid.UUID, typ option.Type, model string, expiryDays int32) (*pool.Route, error) {
	if m.getRouteFunc != nil {
		return m.getRouteFunc(ctx, pairID, typ, model, expiryDays)
	}
	return nil, errors.ErrNotFound
}

func strategyPool(id uuid.UUID, bucket int32) *pool.Pool {
	return &pool.Pool{
		ID:           id,
		Type:         option.TypeCall,
		Model:        "bs",
		ExpiryBucket: bucket,
		TotalBalance: decimal.NewFromInt(1000),
	}
}

func newKeeper(t *testing.T) (*auth.Keeper, auth.Capability) {
	t.Helper()
	keeper := auth.NewKeeper(map[auth.Role]string{
		auth.RoleAdmin:   "admin-secret",
		auth.RoleManager: "manager-secret",
	})
	cap, err := keeper.Grant(auth.RoleAdmin, "admin-secret")
	require.NoError(t, err)
	return keeper, cap
}

func TestSelectPools_DerivedOrdering(t *testing.T) {
	defID := uuid.New()
	tier7 := uuid.New()
	tier14 := uuid.New()
	tier28 := uuid.New()

	repo := &MockPoolRepository{
		poolsByStrategyFunc: func(context.Context, uuid.UUID, option.Type, string) ([]*pool.Pool, error) {
			// Default first, tiers descending: repository contract
			return []*pool.Pool{
				strategyPool(defID, 0),
				strategyPool(tier28, 28),
				strategyPool(tier14, 14),
				strategyPool(tier7, 7),
			}, nil
		},
	}
	keeper, _ := newKeeper(t)
	svc := NewService(repo, keeper, testLogger())

	// 10-day request: default first, then tiers with bucket >= 10 descending;
	// the 7-day tier is too small to hold a 10-day option
	ids, err := svc.SelectPools(context.Background(), uuid.New(), option.TypeCall, "bs", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{defID, tier28, tier14}, ids)

	// 1-day request can draw from every tier
	ids, err = svc.SelectPools(context.Background(), uuid.New(), option.TypeCall, "bs", 1)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{defID, tier28, tier14, tier7}, ids)

	// Beyond every tier only the default pool remains
	ids, err = svc.SelectPools(context.Background(), uuid.New(), option.TypeCall, "bs", 30)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{defID}, ids)
}

func TestSelectPools_ExplicitRouteWins(t *testing.T) {
	routed := []uuid.UUID{uuid.New(), uuid.New()}

	repo := &MockPoolRepository{
		getRouteFunc: func(context.Context, uuid.UUID, option.Type, string, int32) (*pool.Route, error) {
			return &pool.Route{PoolIDs: routed}, nil
		},
		poolsByStrategyFunc: func(context.Context, uuid.UUID, option.Type, string) ([]*pool.Pool, error) {
			t.Fatal("derivation must not run when an explicit route exists")
			return nil, nil
		},
	}
	keeper, _ := newKeeper(t)
	svc := NewService(repo, keeper, testLogger())

	ids, err := svc.SelectPools(context.Background(), uuid.New(), option.TypeCall, "bs", 7)
	require.NoError(t, err)
	assert.Equal(t, routed, ids)
}

func TestSelectPools_NoPools(t *testing.T) {
	keeper, _ := newKeeper(t)
	svc := NewService(&MockPoolRepository{}, keeper, testLogger())

	_, err := svc.SelectPools(context.Background(), uuid.New(), option.TypeCall, "bs", 7)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestSetRoute_RequiresAdmin(t *testing.T) {
	keeper, _ := newKeeper(t)
	managerCap, err := keeper.Grant(auth.RoleManager, "manager-secret")
	require.NoError(t, err)

	svc := NewService(&MockPoolRepository{}, keeper, testLogger())

	err = svc.SetRoute(context.Background(), managerCap, &pool.Route{
		Type:    option.TypeCall,
		PoolIDs: []uuid.UUID{uuid.New()},
	})
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestSetRoute_ValidatesPools(t *testing.T) {
	known := uuid.New()

	repo := &MockPoolRepository{
		getPoolFunc: func(_ context.Context, id uuid.UUID) (*pool.Pool, error) {
			if id == known {
				return strategyPool(id, 0), nil
			}
			return nil, errors.ErrNotFound
		},
	}
	keeper, adminCap := newKeeper(t)
	svc := NewService(repo, keeper, testLogger())

	// Route referencing an unknown pool is rejected
	err := svc.SetRoute(context.Background(), adminCap, &pool.Route{
		Type:    option.TypeCall,
		PoolIDs: []uuid.UUID{known, uuid.New()},
	})
	assert.ErrorIs(t, err, errors.ErrInvalidID)

	// Empty route is rejected
	err = svc.SetRoute(context.Background(), adminCap, &pool.Route{Type: option.TypeCall})
	assert.ErrorIs(t, err, errors.ErrInvalidInput)

	// Valid route saves
	saved := false
	repo.saveRouteFunc = func(context.Context, *pool.Route) error {
		saved = true
		return nil
	}
	err = svc.SetRoute(context.Background(), adminCap, &pool.Route{
		Type:    option.TypeCall,
		PoolIDs: []uuid.UUID{known},
	})
	require.NoError(t, err)
	assert.True(t, saved)
}
