package test

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/option"
	"hyperion/internal/testsupport/seeds"
)

// Fixed pool IDs for integration fixtures
var (
	PoolCallDefault = uuid.MustParse("7b9d4e10-55aa-4f2e-8c33-1a0b5d7e3101")
	PoolPutDefault  = uuid.MustParse("7b9d4e10-55aa-4f2e-8c33-1a0b5d7e3102")
)

// SeedPools creates funded default pools for the test pair (idempotent)
func SeedPools(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	pools := []struct {
		id  uuid.UUID
		typ option.Type
	}{
		{id: PoolCallDefault, typ: option.TypeCall},
		{id: PoolPutDefault, typ: option.TypePut},
	}

	for _, p := range pools {
		_, err := s.Pool().
			WithID(p.id).
			WithPair(PairETHUSD).
			WithType(p.typ).
			WithBalances(decimal.NewFromInt(1_000_000), decimal.Zero).
			Insert()
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				continue
			}
			return err
		}

		log.Infow("Created test pool", "type", p.typ)
	}

	return nil
}
