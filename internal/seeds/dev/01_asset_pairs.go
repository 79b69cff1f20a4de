package dev

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/testsupport/seeds"
)

// Well-known pair IDs so pool and surface seeds can reference them
var (
	PairETHUSD = uuid.MustParse("3f1c2a84-0f7e-4c5b-9b1a-6d2e8a4c9001")
	PairBTCUSD = uuid.MustParse("3f1c2a84-0f7e-4c5b-9b1a-6d2e8a4c9002")
)

// SeedAssetPairs creates the development asset pairs (idempotent)
func SeedAssetPairs(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	pairs := []struct {
		id            uuid.UUID
		base, quote   string
		purchaseLimit string
	}{
		{id: PairETHUSD, base: "ETH", quote: "USD", purchaseLimit: "0.01"},
		{id: PairBTCUSD, base: "BTC", quote: "USD", purchaseLimit: "0.001"},
	}

	for _, p := range pairs {
		_, err := s.AssetPair().
			WithID(p.id).
			WithSymbols(p.base, p.quote).
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
