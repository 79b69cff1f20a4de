package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperion/internal/domain/option"
	"hyperion/internal/testsupport"
	"hyperion/pkg/errors"
)

func TestOptionRepository_CreateAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewOptionRepository(testDB.DB())
	ctx := context.Background()

	fixtures := NewTestFixtures(t, testDB.DB())
	pairID := fixtures.CreatePair()

	o := &option.Option{
		ID:         uuid.New(),
		PairID:     pairID,
		Holder:     testsupport.UniqueAccount(),
		Type:       option.TypePut,
		Model:      "bs",
		Strike:     decimal.NewFromInt(1800),
		Amount:     decimal.RequireFromString("2.5"),
		Expiration: time.Now().Add(14 * 24 * time.Hour),
		Premium:    decimal.RequireFromString("120.5"),
		Fee:        decimal.RequireFromString("2.41"),
		Status:     option.StatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	err := repo.Create(ctx, o)
	require.NoError(t, err, "Create should not return error")

	retrieved, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Holder, retrieved.Holder)
	assert.Equal(t, option.TypePut, retrieved.Type)
	assert.True(t, o.Strike.Equal(retrieved.Strike))
	assert.True(t, o.Premium.Equal(retrieved.Premium))
	assert.Equal(t, option.StatusPending, retrieved.Status)
	assert.Empty(t, retrieved.Locks)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestOptionRepository_SaveLocks(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewOptionRepository(testDB.DB())
	ctx := context.Background()

	fixtures := NewTestFixtures(t, testDB.DB())
	pairID := fixtures.CreatePair()
	poolA := fixtures.CreatePool(pairID)
	poolB := fixtures.CreatePool(pairID, func(f *PoolFixture) {
		f.ExpiryBucket = 7
	})
	optionID := fixtures.CreateOption(pairID)

	locks := []option.Lock{
		{OptionID: optionID, PoolID: poolA, Amount: decimal.NewFromInt(1200)},
		{OptionID: optionID, PoolID: poolB, Amount: decimal.NewFromInt(800)},
	}
	require.NoError(t, repo.SaveLocks(ctx, optionID, locks))

	retrieved, err := repo.GetByID(ctx, optionID)
	require.NoError(t, err)
	require.Len(t, retrieved.Locks, 2)
	assert.True(t, retrieved.LockedTotal().Equal(decimal.NewFromInt(2000)))
}

func TestOptionRepository_SetStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewOptionRepository(testDB.DB())
	ctx := context.Background()

	fixtures := NewTestFixtures(t, testDB.DB())
	pairID := fixtures.CreatePair()
	optionID := fixtures.CreateOption(pairID)

	// pending -> active succeeds
	err := repo.SetStatus(ctx, optionID, option.StatusPending, option.StatusActive)
	require.NoError(t, err)

	// repeating the same transition fails: status already moved
	err = repo.SetStatus(ctx, optionID, option.StatusPending, option.StatusActive)
	assert.ErrorIs(t, err, errors.ErrInvalidState)

	// active -> exercised succeeds
	err = repo.SetStatus(ctx, optionID, option.StatusActive, option.StatusExercised)
	require.NoError(t, err)

	retrieved, err := repo.GetByID(ctx, optionID)
	require.NoError(t, err)
	assert.Equal(t, option.StatusExercised, retrieved.Status)
}

func TestOptionRepository_MarkUnlocked(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewOptionRepository(testDB.DB())
	ctx := context.Background()

	fixtures := NewTestFixtures(t, testDB.DB())
	pairID := fixtures.CreatePair()
	optionID := fixtures.CreateOption(pairID)

	unlockedAt := time.Now()
	require.NoError(t, repo.MarkUnlocked(ctx, optionID, unlockedAt))

	retrieved, err := repo.GetByID(ctx, optionID)
	require.NoError(t, err)
	require.NotNil(t, retrieved.UnlockedAt)
	assert.WithinDuration(t, unlockedAt, *retrieved.UnlockedAt, time.Second)
}

func TestOptionRepository_GetActiveExpiredBefore(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewOptionRepository(testDB.DB())
	ctx := context.Background()

	fixtures := NewTestFixtures(t, testDB.DB())
	pairID := fixtures.CreatePair()

	expired := fixtures.CreateOption(pairID, func(f *OptionFixture) {
		f.Status = option.StatusActive
		f.Expiration = time.Now().Add(-time.Hour)
	})
	// Still running, must not be returned
	fixtures.CreateOption(pairID, func(f *OptionFixture) {
		f.Status = option.StatusActive
		f.Expiration = time.Now().Add(24 * time.Hour)
	})
	// Expired but pending, must not be returned
	fixtures.CreateOption(pairID, func(f *OptionFixture) {
		f.Status = option.StatusPending
		f.Expiration = time.Now().Add(-time.Hour)
	})

	found, err := repo.GetActiveExpiredBefore(ctx, time.Now(), 100)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, len(found))
	for _, o := range found {
		ids = append(ids, o.ID)
	}
	assert.Contains(t, ids, expired)
	for _, o := range found {
		assert.Equal(t, option.StatusActive, o.Status)
		assert.True(t, o.Expired(time.Now()))
	}
}

func TestOptionRepository_GetByHolder(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	defer testDB.Close()

	repo := NewOptionRepository(testDB.DB())
	ctx := context.Background()

	fixtures := NewTestFixtures(t, testDB.DB())
	pairID := fixtures.CreatePair()
	holder := testsupport.UniqueAccount()

	fixtures.CreateOption(pairID, func(f *OptionFixture) { f.Holder = holder })
	fixtures.CreateOption(pairID, func(f *OptionFixture) { f.Holder = holder })
	fixtures.CreateOption(pairID)

	found, err := repo.GetByHolder(ctx, holder)
	require.NoError(t, err)
	assert.Len(t, found, 2)
	for _, o := range found {
		assert.Equal(t, holder, o.Holder)
	}
}
