package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"hyperion/internal/domain/volatility"
	"hyperion/pkg/errors"
)

// Compile-time check
var _ volatility.Surface = (*VolSurfaceRepository)(nil)

// VolSurfaceRepository implements volatility.Surface using sqlx
type VolSurfaceRepository struct {
	db *sqlx.DB
}

// NewVolSurfaceRepository creates a new volatility surface repository
func NewVolSurfaceRepository(db *sqlx.DB) *VolSurfaceRepository {
	return &VolSurfaceRepository{db: db}
}

// Upsert writes a calibrated point keyed by (pair, expiry, moneyness)
func (r *VolSurfaceRepository) Upsert(ctx context.Context, p *volatility.Point) error {
	if !volatility.ValidDecimals(p.Decimals) {
		return errors.Wrapf(errors.ErrInvalidInput, "iv decimals %d outside [%d, %d]",
			p.Decimals, volatility.MinDecimals, volatility.MaxDecimals)
	}

	query := `
		INSERT INTO vol_surface_points (pair_id, expiry_days, moneyness, iv, decimals, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pair_id, expiry_days, moneyness)
		DO UPDATE SET iv = EXCLUDED.iv, decimals = EXCLUDED.decimals, updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		p.PairID, p.ExpiryDays, p.Moneyness, p.IV, p.Decimals, p.UpdatedAt,
	)
	return err
}

// FloorPoint returns the stored point with the greatest moneyness bucket at
// or below the requested one, for the exact (pair, expiry)
func (r *VolSurfaceRepository) FloorPoint(ctx context.Context, pairID uuid.UUID, expiryDays, moneyness int32) (*volatility.Point, error) {
	var p volatility.Point

	query := `
		SELECT pair_id, expiry_days, moneyness, iv, decimals, updated_at
		FROM vol_surface_points
		WHERE pair_id = $1 AND expiry_days = $2 AND moneyness <= $3
		ORDER BY moneyness DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &p, query, pairID, expiryDays, moneyness)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "no surface point for pair %s expiry %dd moneyness <= %d",
			pairID, expiryDays, moneyness)
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// Expiries lists the distinct calibrated expiry buckets for a pair, ascending
func (r *VolSurfaceRepository) Expiries(ctx context.Context, pairID uuid.UUID) ([]int32, error) {
	var expiries []int32

	query := `
		SELECT DISTINCT expiry_days FROM vol_surface_points
		WHERE pair_id = $1
		ORDER BY expiry_days ASC`

	err := r.db.SelectContext(ctx, &expiries, query, pairID)
	if err != nil {
		return nil, err
	}

	return expiries, nil
}
