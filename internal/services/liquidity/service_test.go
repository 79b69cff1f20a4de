package liquidity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pool"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

func testLogger() *logger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return &logger.Logger{SugaredLogger: zapLogger.Sugar()}
}

// memPoolRepository is an in-memory pool.Repository for service tests
type memPoolRepository struct {
	pools         map[uuid.UUID]*pool.Pool
	positions     []*pool.ProviderPosition
	dayLiquidity  map[uuid.UUID]map[pool.Day]decimal.Decimal
	accruals      map[uuid.UUID]map[pool.Day]decimal.Decimal
	distributions map[string]*pool.PremiumDistribution
	routes        map[string]*pool.Route
}

func newMemPoolRepository() *memPoolRepository {
	return &memPoolRepository{
		pools:         map[uuid.UUID]*pool.Pool{},
		dayLiquidity:  map[uuid.UUID]map[pool.Day]decimal.Decimal{},
		accruals:      map[uuid.UUID]map[pool.Day]decimal.Decimal{},
		distributions: map[string]*pool.PremiumDistribution{},
		routes:        map[string]*pool.Route{},
	}
}

func (m *memPoolRepository) CreatePool(ctx context.Context, p *pool.Pool) error {
	cp := *p
	m.pools[p.ID] = &cp
	return nil
}

func (m *memPoolRepository) GetPool(ctx context.Context, id uuid.UUID) (*pool.Pool, error) {
	p, ok := m.pools[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "pool %s", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memPoolRepository) GetPoolForUpdate(ctx context.Context, id uuid.UUID) (*pool.Pool, error) {
	return m.GetPool(ctx, id)
}

func (m *memPoolRepository) ListPools(ctx context.Context) ([]*pool.Pool, error) {
	var out []*pool.Pool
	for _, p := range m.pools {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memPoolRepository) PoolsByStrategy(ctx context.Context, pairID uuid.UUID, typ option.Type, model string) ([]*pool.Pool, error) {
	var out []*pool.Pool
	for _, p := range m.pools {
		if p.PairID == pairID && p.Type == typ && p.Model == model {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPoolRepository) UpdatePoolBalances(ctx context.Context, id uuid.UUID, total, locked decimal.Decimal) error {
	p, ok := m.pools[id]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "pool %s", id)
	}
	p.TotalBalance = total
	p.LockedBalance = locked
	return nil
}

func (m *memPoolRepository) AppendPosition(ctx context.Context, p *pool.ProviderPosition) error {
	cp := *p
	cp.Seq = 1
	for _, existing := range m.positions {
		if existing.Provider == p.Provider && existing.PoolID == p.PoolID && existing.Seq >= cp.Seq {
			cp.Seq = existing.Seq + 1
		}
	}
	m.positions = append(m.positions, &cp)
	return nil
}

func (m *memPoolRepository) latestPosition(provider string, poolID uuid.UUID, before *pool.Day) *pool.ProviderPosition {
	var latest *pool.ProviderPosition
	for _, p := range m.positions {
		if p.Provider != provider || p.PoolID != poolID {
			continue
		}
		if before != nil && p.DepositDay >= *before {
			continue
		}
		if latest == nil || p.Seq > latest.Seq {
			latest = p
		}
	}
	return latest
}

func (m *memPoolRepository) ProviderPoolBalance(ctx context.Context, provider string, poolID uuid.UUID) (decimal.Decimal, error) {
	if p := m.latestPosition(provider, poolID, nil); p != nil {
		return p.CurrentBalance, nil
	}
	return decimal.Zero, nil
}

func (m *memPoolRepository) ProviderPoolBalanceAsOf(ctx context.Context, provider string, poolID uuid.UUID, day pool.Day) (decimal.Decimal, error) {
	if p := m.latestPosition(provider, poolID, &day); p != nil {
		return p.CurrentBalance, nil
	}
	return decimal.Zero, nil
}

func (m *memPoolRepository) ProviderBalance(ctx context.Context, provider string) (decimal.Decimal, error) {
	total := decimal.Zero
	for id := range m.pools {
		b, _ := m.ProviderPoolBalance(ctx, provider, id)
		total = total.Add(b)
	}
	return total, nil
}

func (m *memPoolRepository) PoolProviders(ctx context.Context, poolID uuid.UUID) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range m.positions {
		if p.PoolID == poolID && !seen[p.Provider] {
			seen[p.Provider] = true
			out = append(out, p.Provider)
		}
	}
	return out, nil
}

func (m *memPoolRepository) ProviderPositions(ctx context.Context, provider string, poolID uuid.UUID) ([]*pool.ProviderPosition, error) {
	var out []*pool.ProviderPosition
	for _, p := range m.positions {
		if p.Provider == provider && p.PoolID == poolID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPoolRepository) BumpDayLiquidity(ctx context.Context, poolID uuid.UUID, day pool.Day, delta decimal.Decimal) error {
	buckets, ok := m.dayLiquidity[poolID]
	if !ok {
		buckets = map[pool.Day]decimal.Decimal{}
		m.dayLiquidity[poolID] = buckets
	}
	if _, touched := buckets[day]; !touched {
		carried, _ := m.DayLiquidity(ctx, poolID, day)
		buckets[day] = carried
	}
	buckets[day] = buckets[day].Add(delta)
	return nil
}

func (m *memPoolRepository) DayLiquidity(ctx context.Context, poolID uuid.UUID, day pool.Day) (decimal.Decimal, error) {
	buckets := m.dayLiquidity[poolID]
	var bestDay pool.Day
	best := decimal.Zero
	found := false
	for d, amount := range buckets {
		if d <= day && (!found || d > bestDay) {
			bestDay = d
			best = amount
			found = true
		}
	}
	return best, nil
}

func (m *memPoolRepository) AccruePremium(ctx context.Context, poolID uuid.UUID, day pool.Day, amount decimal.Decimal) error {
	buckets, ok := m.accruals[poolID]
	if !ok {
		buckets = map[pool.Day]decimal.Decimal{}
		m.accruals[poolID] = buckets
	}
	buckets[day] = buckets[day].Add(amount)
	return nil
}

func (m *memPoolRepository) AccruedPremium(ctx context.Context, poolID uuid.UUID, day pool.Day) (decimal.Decimal, error) {
	return m.accruals[poolID][day], nil
}

func (m *memPoolRepository) UndistributedPremiumDays(ctx context.Context, before pool.Day) ([]pool.PremiumDay, error) {
	var out []pool.PremiumDay
	for poolID, buckets := range m.accruals {
		for day := range buckets {
			if day >= before {
				continue
			}
			distributed := false
			for _, d := range m.distributions {
				if d.PoolID == poolID && d.Day == day {
					distributed = true
					break
				}
			}
			if !distributed {
				out = append(out, pool.PremiumDay{PoolID: poolID, Day: day})
			}
		}
	}
	return out, nil
}

func (m *memPoolRepository) InsertDistribution(ctx context.Context, d *pool.PremiumDistribution) (bool, error) {
	key := fmt.Sprintf("%s|%d|%s", d.PoolID, d.Day, d.Provider)
	if _, exists := m.distributions[key]; exists {
		return false, nil
	}
	cp := *d
	m.distributions[key] = &cp
	return true, nil
}

func (m *memPoolRepository) SaveRoute(ctx context.Context, r *pool.Route) error {
	key := fmt.Sprintf("%s|%s|%s|%d", r.PairID, r.Type, r.Model, r.ExpiryDays)
	cp := *r
	m.routes[key] = &cp
	return nil
}

func (m *memPoolRepository) GetRoute(ctx context.Context, pairID uuid.UUID, typ option.Type, model string, expiryDays int32) (*pool.Route, error) {
	key := fmt.Sprintf("%s|%s|%s|%d", pairID, typ, model, expiryDays)
	r, ok := m.routes[key]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// memUnitOfWork hands the fn the shared in-memory repository; rollback
// semantics are covered by the postgres integration tests
type memUnitOfWork struct {
	repo *memPoolRepository
}

func (u *memUnitOfWork) Do(ctx context.Context, fn func(pool.Repository) error) error {
	return fn(u.repo)
}

func newTestService(t *testing.T) (*Service, *memPoolRepository) {
	t.Helper()
	repo := newMemPoolRepository()
	svc := NewService(&memUnitOfWork{repo: repo}, testLogger())
	return svc, repo
}

func seedPool(t *testing.T, repo *memPoolRepository) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, repo.CreatePool(context.Background(), &pool.Pool{
		ID:            id,
		PairID:        uuid.New(),
		Type:          option.TypeCall,
		Model:         "bs",
		TotalBalance:  decimal.Zero,
		LockedBalance: decimal.Zero,
	}))
	return id
}

func TestDeposit(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Deposit(ctx, "alice", poolID, decimal.NewFromInt(1000)))
	require.NoError(t, svc.Deposit(ctx, "alice", poolID, decimal.NewFromInt(500)))

	p, err := repo.GetPool(ctx, poolID)
	require.NoError(t, err)
	assert.True(t, p.TotalBalance.Equal(decimal.NewFromInt(1500)))
	assert.True(t, p.LockedBalance.IsZero())

	balance, err := svc.USDBalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1500)))

	active, err := svc.DayActiveLiquidity(ctx, poolID, pool.Today())
	require.NoError(t, err)
	assert.True(t, active.Equal(decimal.NewFromInt(1500)))
}

func TestDeposit_Validation(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	err := svc.Deposit(ctx, "", poolID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, errors.ErrInvalidAddress)

	err = svc.Deposit(ctx, "alice", poolID, decimal.Zero)
	assert.ErrorIs(t, err, errors.ErrAmountTooSmall)

	err = svc.Deposit(ctx, "alice", uuid.New(), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, errors.ErrInvalidID)
}

func TestWithdraw_RoundTrip(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Deposit(ctx, "alice", poolID, decimal.NewFromInt(1000)))
	require.NoError(t, svc.Withdraw(ctx, "alice", poolID, decimal.NewFromInt(1000)))

	p, err := repo.GetPool(ctx, poolID)
	require.NoError(t, err)
	assert.True(t, p.TotalBalance.IsZero())

	balance, err := svc.USDBalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestWithdraw_BoundedByLockedCollateral(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Deposit(ctx, "alice", poolID, decimal.NewFromInt(1000)))

	// Lock 600 as option collateral: only 400 stays withdrawable
	p, err := repo.GetPool(ctx, poolID)
	require.NoError(t, err)
	require.NoError(t, repo.UpdatePoolBalances(ctx, poolID, p.TotalBalance, decimal.NewFromInt(600)))

	err = svc.Withdraw(ctx, "alice", poolID, decimal.NewFromInt(500))
	assert.ErrorIs(t, err, errors.ErrInsufficientPoolFunds)

	require.NoError(t, svc.Withdraw(ctx, "alice", poolID, decimal.NewFromInt(400)))
}

func TestWithdraw_BoundedByProviderBalance(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	require.NoError(t, svc.Deposit(ctx, "alice", poolID, decimal.NewFromInt(300)))
	require.NoError(t, svc.Deposit(ctx, "bob", poolID, decimal.NewFromInt(700)))

	// Pool holds 1000 available, but alice only owns 300
	err := svc.Withdraw(ctx, "alice", poolID, decimal.NewFromInt(400))
	assert.ErrorIs(t, err, errors.ErrAmountTooLarge)
}

func TestDistributePremium_ProRata(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	day0 := pool.Today()
	svc.now = func() time.Time { return day0.Time() }

	require.NoError(t, svc.Deposit(ctx, "alice", poolID, decimal.NewFromInt(750)))
	require.NoError(t, svc.Deposit(ctx, "bob", poolID, decimal.NewFromInt(250)))

	// Premium collected on the next day
	accrualDay := day0 + 1
	require.NoError(t, repo.AccruePremium(ctx, poolID, accrualDay, decimal.NewFromInt(100)))

	// Two days later the accrual day has settled
	svc.now = func() time.Time { return (day0 + 2).Time() }

	credited, err := svc.DistributePremium(ctx, poolID, accrualDay, nil)
	require.NoError(t, err)
	assert.True(t, credited.Equal(decimal.NewFromInt(100)), "credited %s", credited)

	aliceBalance, err := repo.ProviderPoolBalance(ctx, "alice", poolID)
	require.NoError(t, err)
	assert.True(t, aliceBalance.Equal(decimal.NewFromInt(825)))

	bobBalance, err := repo.ProviderPoolBalance(ctx, "bob", poolID)
	require.NoError(t, err)
	assert.True(t, bobBalance.Equal(decimal.NewFromInt(275)))

	// The credited premium joins the pool's working capital
	p, err := repo.GetPool(ctx, poolID)
	require.NoError(t, err)
	assert.True(t, p.TotalBalance.Equal(decimal.NewFromInt(1100)))

	// Repeating the distribution credits nothing
	credited, err = svc.DistributePremium(ctx, poolID, accrualDay, nil)
	require.NoError(t, err)
	assert.True(t, credited.IsZero())

	aliceBalance, err = repo.ProviderPoolBalance(ctx, "alice", poolID)
	require.NoError(t, err)
	assert.True(t, aliceBalance.Equal(decimal.NewFromInt(825)), "double credit detected")
}

func TestDistributePremium_UnsettledDay(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)

	_, err := svc.DistributePremium(context.Background(), poolID, pool.Today(), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidDate)

	_, err = svc.DistributePremium(context.Background(), poolID, pool.Today()+1, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidDate)
}

func TestDistributePremium_LateDepositorExcluded(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	day0 := pool.Today()
	svc.now = func() time.Time { return day0.Time() }
	require.NoError(t, svc.Deposit(ctx, "early", poolID, decimal.NewFromInt(500)))

	accrualDay := day0 + 1
	require.NoError(t, repo.AccruePremium(ctx, poolID, accrualDay, decimal.NewFromInt(100)))

	// carol deposits on the accrual day itself: not active for that day
	svc.now = func() time.Time { return accrualDay.Time() }
	require.NoError(t, svc.Deposit(ctx, "carol", poolID, decimal.NewFromInt(500)))

	svc.now = func() time.Time { return (day0 + 2).Time() }

	_, err := svc.DistributePremium(ctx, poolID, accrualDay, nil)
	require.NoError(t, err)

	carolBalance, err := repo.ProviderPoolBalance(ctx, "carol", poolID)
	require.NoError(t, err)
	assert.True(t, carolBalance.Equal(decimal.NewFromInt(500)), "late depositor must not be credited")

	earlyBalance, err := repo.ProviderPoolBalance(ctx, "early", poolID)
	require.NoError(t, err)
	assert.True(t, earlyBalance.GreaterThan(decimal.NewFromInt(500)))
}

func TestUndistributedDays(t *testing.T) {
	svc, repo := newTestService(t)
	poolID := seedPool(t, repo)
	ctx := context.Background()

	day0 := pool.Today()
	svc.now = func() time.Time { return day0.Time() }

	require.NoError(t, svc.Deposit(ctx, "alice", poolID, decimal.NewFromInt(100)))

	accrualDay := day0 + 1
	require.NoError(t, repo.AccruePremium(ctx, poolID, accrualDay, decimal.NewFromInt(10)))

	svc.now = func() time.Time { return (day0 + 2).Time() }

	days, err := svc.UndistributedDays(ctx)
	require.NoError(t, err)
	assert.Contains(t, days, pool.PremiumDay{PoolID: poolID, Day: accrualDay})

	_, err = svc.DistributePremium(ctx, poolID, accrualDay, nil)
	require.NoError(t, err)

	days, err = svc.UndistributedDays(ctx)
	require.NoError(t, err)
	assert.NotContains(t, days, pool.PremiumDay{PoolID: poolID, Day: accrualDay})
}
