package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/adapters/clickhouse"
	"hyperion/internal/adapters/config"
	"hyperion/internal/domain/history"
)

// ClickHouseTestHelper manages cleanup for ClickHouse integration tests.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper creates a ClickHouse client for tests.
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	client, err := clickhouse.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	helper := &ClickHouseTestHelper{client: client}
	t.Cleanup(func() { _ = client.Close() })
	return helper
}

// CreateTempTable creates a temporary table and registers cleanup.
func (h *ClickHouseTestHelper) CreateTempTable(t *testing.T, schema string) string {
	t.Helper()

	table := fmt.Sprintf("tmp_test_%d", time.Now().UnixNano())
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()", table, schema)

	if err := h.client.Exec(context.Background(), query); err != nil {
		t.Fatalf("failed to create clickhouse table: %v", err)
	}

	t.Cleanup(func() {
		_ = h.client.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})

	return table
}

// CleanupTable drops the provided table immediately.
func (h *ClickHouseTestHelper) CleanupTable(ctx context.Context, table string) error {
	return h.client.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
}

// TruncateTable removes all data from the table but keeps the structure
func (h *ClickHouseTestHelper) TruncateTable(ctx context.Context, table string) error {
	return h.client.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s", table))
}

// CleanupTableData deletes data matching a filter condition
// Example: CleanupTableData(ctx, "settlement_history", "account = 'test_acct'")
func (h *ClickHouseTestHelper) CleanupTableData(ctx context.Context, table, condition string) error {
	query := fmt.Sprintf("ALTER TABLE %s DELETE WHERE %s", table, condition)
	return h.client.Exec(ctx, query)
}

// RegisterTableCleanup schedules cleanup of specific table data after test completes
// This is useful when working with shared tables that shouldn't be dropped
func (h *ClickHouseTestHelper) RegisterTableCleanup(t *testing.T, table, condition string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		// Use DELETE for immediate cleanup (ALTER TABLE DELETE is async)
		query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, condition)
		_ = h.client.Exec(ctx, query)
	})
}

// CreateBatch is a generic function to insert test data into ClickHouse tables
// Usage: testsupport.CreateBatch(t, helper, testsupport.InsertSettlementHistory, records)
func CreateBatch[T any](t *testing.T, helper *ClickHouseTestHelper, insertQuery string, items []T) {
	t.Helper()

	if len(items) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batch, err := helper.client.Conn().PrepareBatch(ctx, insertQuery)
	if err != nil {
		t.Fatalf("failed to prepare batch: %v", err)
	}

	for _, item := range items {
		if err := batch.AppendStruct(&item); err != nil {
			t.Fatalf("failed to append item to batch: %v", err)
		}
	}

	if err := batch.Send(); err != nil {
		t.Fatalf("failed to send batch: %v", err)
	}
}

// Predefined insert queries for common tables
const (
	InsertSettlementHistory = `
		INSERT INTO settlement_history (
			event_type, option_id, pair_id, pool_id, account,
			amount, premium, fee, payout, spot, timestamp
		)
	`
)

// Client exposes the raw ClickHouse client for queries.
func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// ========================================
// Fixture Builders for ClickHouse Tests
// ========================================

// SettlementRecordFixture provides builder pattern for creating test
// settlement history records
type SettlementRecordFixture struct {
	record history.Record
}

// NewSettlementRecordFixture creates a default history record for testing
// Default: a bought call with premium 60 and fee 0.6, timestamped now
func NewSettlementRecordFixture() *SettlementRecordFixture {
	return &SettlementRecordFixture{
		record: history.Record{
			EventType: history.EventBought,
			OptionID:  uuid.New(),
			PairID:    uuid.New(),
			Account:   UniqueAccount(),
			Amount:    decimal.NewFromInt(1),
			Premium:   decimal.NewFromInt(60),
			Fee:       decimal.NewFromFloat(0.6),
			Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		},
	}
}

// WithEventType sets the event type
func (f *SettlementRecordFixture) WithEventType(t history.EventType) *SettlementRecordFixture {
	f.record.EventType = t
	return f
}

// WithOptionID sets the option id
func (f *SettlementRecordFixture) WithOptionID(id uuid.UUID) *SettlementRecordFixture {
	f.record.OptionID = id
	return f
}

// WithPairID sets the asset pair id
func (f *SettlementRecordFixture) WithPairID(id uuid.UUID) *SettlementRecordFixture {
	f.record.PairID = id
	return f
}

// WithPoolID sets the pool id
func (f *SettlementRecordFixture) WithPoolID(id uuid.UUID) *SettlementRecordFixture {
	f.record.PoolID = id
	return f
}

// WithAccount sets the settlement account
func (f *SettlementRecordFixture) WithAccount(account string) *SettlementRecordFixture {
	f.record.Account = account
	return f
}

// WithAmount sets the underlying amount
func (f *SettlementRecordFixture) WithAmount(amount decimal.Decimal) *SettlementRecordFixture {
	f.record.Amount = amount
	return f
}

// WithPremium sets premium and fee together
func (f *SettlementRecordFixture) WithPremium(premium, fee decimal.Decimal) *SettlementRecordFixture {
	f.record.Premium = premium
	f.record.Fee = fee
	return f
}

// WithPayout sets the exercise payout and spot
func (f *SettlementRecordFixture) WithPayout(payout, spot decimal.Decimal) *SettlementRecordFixture {
	f.record.Payout = payout
	f.record.Spot = spot
	return f
}

// WithTimestamp sets the event time
func (f *SettlementRecordFixture) WithTimestamp(ts time.Time) *SettlementRecordFixture {
	f.record.Timestamp = ts
	return f
}

// Build returns the constructed record
func (f *SettlementRecordFixture) Build() history.Record {
	return f.record
}
