package seeds

import (
	"context"
	"database/sql"

	"hyperion/pkg/logger"
)

// DBTX is the interface that both *sql.DB and *sql.Tx satisfy
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Seeder is the central orchestrator for creating seed data
// It provides a fluent API to build complex test scenarios
type Seeder struct {
	db  DBTX
	ctx context.Context
	log *logger.Logger
}

// New creates a new Seeder instance
func New(db DBTX) *Seeder {
	return &Seeder{
		db:  db,
		ctx: context.Background(),
		log: logger.Get().With("component", "seeds"),
	}
}

// WithContext sets the context for database operations
func (s *Seeder) WithContext(ctx context.Context) *Seeder {
	s.ctx = ctx
	return s
}

// Log returns the logger instance
func (s *Seeder) Log() *logger.Logger {
	return s.log
}

// AssetPair starts building an AssetPair entity
func (s *Seeder) AssetPair() *AssetPairBuilder {
	return NewAssetPairBuilder(s.db, s.ctx)
}

// Pool starts building a Pool entity
func (s *Seeder) Pool() *PoolBuilder {
	return NewPoolBuilder(s.db, s.ctx)
}

// VolPoint starts building a volatility surface point
func (s *Seeder) VolPoint() *VolPointBuilder {
	return NewVolPointBuilder(s.db, s.ctx)
}

// Option starts building an Option entity
func (s *Seeder) Option() *OptionBuilder {
	return NewOptionBuilder(s.db, s.ctx)
}
