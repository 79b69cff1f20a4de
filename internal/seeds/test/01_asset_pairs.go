package test

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/testsupport/seeds"
)

// PairETHUSD is the fixed pair integration tests key their fixtures on
var PairETHUSD = uuid.MustParse("7b9d4e10-55aa-4f2e-8c33-1a0b5d7e3001")

// SeedAssetPairs creates the single test pair (idempotent)
func SeedAssetPairs(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	_, err := s.AssetPair().
		WithID(PairETHUSD).
		WithSymbols("ETH", "USD").
		WithPurchaseLimit(decimal.RequireFromString("0.01")).
		WithExpiryBounds(1, 28).
		Insert()
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			log.Info("Test asset pair already exists, skipping")
			return nil
		}
		return err
	}

	log.Info("Created test asset pair")
	return nil
}
