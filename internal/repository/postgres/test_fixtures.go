package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pool"
	"hyperion/internal/testsupport"
)

// TestFixtures provides factory methods for creating test data
type TestFixtures struct {
	db *sqlx.DB
	t  *testing.T
}

// NewTestFixtures creates a new test fixtures factory
func NewTestFixtures(t *testing.T, db *sqlx.DB) *TestFixtures {
	t.Helper()
	return &TestFixtures{
		db: db,
		t:  t,
	}
}

// PairFixture holds overridable asset pair fields
type PairFixture struct {
	Base          string
	Quote         string
	Active        bool
	PurchaseLimit decimal.Decimal
	MinExpiryDays int32
	MaxExpiryDays int32
}

// CreatePair creates a test asset pair in the database
func (f *TestFixtures) CreatePair(opts ...func(*PairFixture)) uuid.UUID {
	f.t.Helper()

	fixture := &PairFixture{
		Base:          testsupport.UniqueSymbol("ETH"),
		Quote:         "USD",
		Active:        true,
		PurchaseLimit: decimal.RequireFromString("0.01"),
		MinExpiryDays: 1,
		MaxExpiryDays: 28,
	}

	for _, opt := range opts {
		opt(fixture)
	}

	id := uuid.New()
	query := `INSERT INTO asset_pairs (id, base_symbol, quote_symbol, active, purchase_limit, min_expiry_days, max_expiry_days, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := f.db.Exec(query, id, fixture.Base, fixture.Quote, fixture.Active,
		fixture.PurchaseLimit, fixture.MinExpiryDays, fixture.MaxExpiryDays)
	require.NoError(f.t, err, "Failed to create test asset pair")

	return id
}

// PoolFixture holds overridable pool fields
type PoolFixture struct {
	Type          option.Type
	Model         string
	ExpiryBucket  int32
	TotalBalance  decimal.Decimal
	LockedBalance decimal.Decimal
}

// CreatePool creates a test liquidity pool bound to the given pair
func (f *TestFixtures) CreatePool(pairID uuid.UUID, opts ...func(*PoolFixture)) uuid.UUID {
	f.t.Helper()

	fixture := &PoolFixture{
		Type:          option.TypeCall,
		Model:         "bs",
		ExpiryBucket:  0,
		TotalBalance:  decimal.NewFromInt(100000),
		LockedBalance: decimal.Zero,
	}

	for _, opt := range opts {
		opt(fixture)
	}

	id := uuid.New()
	query := `INSERT INTO pools (id, pair_id, option_type, model, expiry_bucket, total_balance, locked_balance, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := f.db.Exec(query, id, pairID, fixture.Type, fixture.Model,
		fixture.ExpiryBucket, fixture.TotalBalance, fixture.LockedBalance)
	require.NoError(f.t, err, "Failed to create test pool")

	return id
}

// OptionFixture holds overridable option fields
type OptionFixture struct {
	Holder     string
	Type       option.Type
	Model      string
	Strike     decimal.Decimal
	Amount     decimal.Decimal
	Expiration time.Time
	Premium    decimal.Decimal
	Fee        decimal.Decimal
	Status     option.Status
}

// CreateOption creates a test option bound to the given pair
func (f *TestFixtures) CreateOption(pairID uuid.UUID, opts ...func(*OptionFixture)) uuid.UUID {
	f.t.Helper()

	fixture := &OptionFixture{
		Holder:     testsupport.UniqueAccount(),
		Type:       option.TypeCall,
		Model:      "bs",
		Strike:     decimal.NewFromInt(2000),
		Amount:     decimal.NewFromInt(1),
		Expiration: time.Now().Add(7 * 24 * time.Hour),
		Premium:    decimal.RequireFromString("50"),
		Fee:        decimal.RequireFromString("1"),
		Status:     option.StatusPending,
	}

	for _, opt := range opts {
		opt(fixture)
	}

	id := uuid.New()
	query := `INSERT INTO options (id, pair_id, holder, option_type, model, strike, amount, expiration, premium, fee, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())`

	_, err := f.db.Exec(query, id, pairID, fixture.Holder, fixture.Type, fixture.Model,
		fixture.Strike, fixture.Amount, fixture.Expiration, fixture.Premium, fixture.Fee, fixture.Status)
	require.NoError(f.t, err, "Failed to create test option")

	return id
}

// AddDeposit appends a provider deposit entry to a pool's ledger and bumps
// the pool's total balance, mirroring what the liquidity service does
func (f *TestFixtures) AddDeposit(poolID uuid.UUID, provider string, amount decimal.Decimal, day pool.Day) {
	f.t.Helper()

	query := `INSERT INTO provider_positions (id, provider, pool_id, seq, transaction_value, current_balance, deposit_day, created_at)
			  VALUES ($1, $2, $3,
			          (SELECT COALESCE(MAX(seq), 0) + 1 FROM provider_positions WHERE provider = $2 AND pool_id = $3),
			          $4,
			          COALESCE((SELECT current_balance FROM provider_positions WHERE provider = $2 AND pool_id = $3 ORDER BY seq DESC LIMIT 1), 0) + $4,
			          $5, NOW())`

	_, err := f.db.Exec(query, uuid.New(), provider, poolID, amount, day)
	require.NoError(f.t, err, "Failed to create provider position")

	_, err = f.db.Exec(`UPDATE pools SET total_balance = total_balance + $2 WHERE id = $1`, poolID, amount)
	require.NoError(f.t, err, "Failed to bump pool balance")
}
