package staging

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/testsupport/seeds"
)

// SeedAssetPairs registers the staging pairs, trading disabled until
// pools are funded and a surface is calibrated (idempotent)
func SeedAssetPairs(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	pairs := []struct {
		id            uuid.UUID
		base, quote   string
		purchaseLimit string
	}{
		{
			id:            uuid.MustParse("9e2f6c01-3b8d-4a77-b540-2c1d9f0e5001"),
			base:          "ETH",
			quote:         "USD",
			purchaseLimit: "0.01",
		},
		{
			id:            uuid.MustParse("9e2f6c01-3b8d-4a77-b540-2c1d9f0e5002"),
			base:          "BTC",
			quote:         "USD",
			purchaseLimit: "0.001",
		},
	}

	for _, p := range pairs {
		_, err := s.AssetPair().
			WithID(p.id).
			WithSymbols(p.base, p.quote).
			WithActive(false).
			WithPurchaseLimit(decimal.RequireFromString(p.purchaseLimit)).
			WithExpiryBounds(1, 28).
			Insert()
		if err != nil {
			if strings.Contains(err.Error(), "duplicate key") {
				log.Infow("Asset pair already exists, skipping", "base", p.base, "quote", p.quote)
				continue
			}
			return err
		}

		log.Infow("Created asset pair", "base", p.base, "quote", p.quote)
	}

	return nil
}
