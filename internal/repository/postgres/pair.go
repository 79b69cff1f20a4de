package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/pair"
	"hyperion/pkg/errors"
)

// Compile-time check
var _ pair.Registry = (*PairRepository)(nil)

// PairRepository implements pair.Registry using sqlx
type PairRepository struct {
	db *sqlx.DB
}

// NewPairRepository creates a new asset pair repository
func NewPairRepository(db *sqlx.DB) *PairRepository {
	return &PairRepository{db: db}
}

// Create inserts a new asset pair
func (r *PairRepository) Create(ctx context.Context, p *pair.AssetPair) error {
	query := `
		INSERT INTO asset_pairs (
			id, base_symbol, quote_symbol, active,
			purchase_limit, min_expiry_days, max_expiry_days,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Base, p.Quote, p.Active,
		p.PurchaseLimit, p.MinExpiryDays, p.MaxExpiryDays,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves an asset pair by ID
func (r *PairRepository) GetByID(ctx context.Context, id uuid.UUID) (*pair.AssetPair, error) {
	var p pair.AssetPair

	query := `SELECT * FROM asset_pairs WHERE id = $1`

	err := r.db.GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "asset pair %s", id)
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// IsActive reports whether the pair exists and is enabled for trading
func (r *PairRepository) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	var active bool

	query := `SELECT active FROM asset_pairs WHERE id = $1`

	err := r.db.GetContext(ctx, &active, query, id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return active, nil
}

// PurchaseLimit returns the minimum purchasable amount for the pair
func (r *PairRepository) PurchaseLimit(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	var limit decimal.Decimal

	query := `SELECT purchase_limit FROM asset_pairs WHERE id = $1`

	err := r.db.GetContext(ctx, &limit, query, id)
	if err == sql.ErrNoRows {
		return decimal.Zero, errors.Wrapf(errors.ErrNotFound, "asset pair %s", id)
	}
	return limit, err
}

// ExpiryBounds returns the allowed expiry window in days for the pair
func (r *PairRepository) ExpiryBounds(ctx context.Context, id uuid.UUID) (min, max int32, err error) {
	var row struct {
		Min int32 `db:"min_expiry_days"`
		Max int32 `db:"max_expiry_days"`
	}

	query := `SELECT min_expiry_days, max_expiry_days FROM asset_pairs WHERE id = $1`

	err = r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return 0, 0, errors.Wrapf(errors.ErrNotFound, "asset pair %s", id)
	}
	if err != nil {
		return 0, 0, err
	}

	return row.Min, row.Max, nil
}

// SetActive toggles trading on the pair
func (r *PairRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE asset_pairs SET active = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, active)
	return err
}

// List retrieves all registered pairs
func (r *PairRepository) List(ctx context.Context) ([]*pair.AssetPair, error) {
	var pairs []*pair.AssetPair

	query := `SELECT * FROM asset_pairs ORDER BY base_symbol, quote_symbol`

	err := r.db.SelectContext(ctx, &pairs, query)
	if err != nil {
		return nil, err
	}

	return pairs, nil
}
