package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/history"
)

// Compile-time check
var _ history.Repository = (*SettlementHistoryRepository)(nil)

// SettlementHistoryRepository implements history.Repository using ClickHouse
type SettlementHistoryRepository struct {
	conn driver.Conn
}

// NewSettlementHistoryRepository creates a new settlement history repository
func NewSettlementHistoryRepository(conn driver.Conn) *SettlementHistoryRepository {
	return &SettlementHistoryRepository{conn: conn}
}

// Insert appends one settlement history record
func (r *SettlementHistoryRepository) Insert(ctx context.Context, rec *history.Record) error {
	query := `
		INSERT INTO settlement_history (
			event_type, option_id, pair_id, pool_id, account,
			amount, premium, fee, payout, spot, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	return r.conn.Exec(ctx, query,
		string(rec.EventType), rec.OptionID, rec.PairID, rec.PoolID, rec.Account,
		rec.Amount, rec.Premium, rec.Fee, rec.Payout, rec.Spot, rec.Timestamp,
	)
}

// InsertBatch appends records via the native batch interface
func (r *SettlementHistoryRepository) InsertBatch(ctx context.Context, records []*history.Record) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO settlement_history (
			event_type, option_id, pair_id, pool_id, account,
			amount, premium, fee, payout, spot, timestamp
		)`)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := batch.Append(
			string(rec.EventType), rec.OptionID, rec.PairID, rec.PoolID, rec.Account,
			rec.Amount, rec.Premium, rec.Fee, rec.Payout, rec.Spot, rec.Timestamp,
		); err != nil {
			return err
		}
	}

	return batch.Send()
}

// DailyVolume returns the summed premium per day for a pair since a time
func (r *SettlementHistoryRepository) DailyVolume(ctx context.Context, pairID uuid.UUID, since time.Time) (map[time.Time]decimal.Decimal, error) {
	query := `
		SELECT toStartOfDay(timestamp) as day, sum(premium) as volume
		FROM settlement_history
		WHERE pair_id = $1 AND event_type = 'bought' AND timestamp >= $2
		GROUP BY day
		ORDER BY day`

	rows, err := r.conn.Query(ctx, query, pairID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	volumes := make(map[time.Time]decimal.Decimal)
	for rows.Next() {
		var day time.Time
		var volume decimal.Decimal
		if err := rows.Scan(&day, &volume); err != nil {
			return nil, err
		}
		volumes[day] = volume
	}

	return volumes, rows.Err()
}
