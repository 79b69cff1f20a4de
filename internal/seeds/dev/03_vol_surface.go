package dev

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"hyperion/internal/domain/volatility"
	"hyperion/internal/testsupport/seeds"
)

// SeedVolSurface calibrates a flat-ish starter surface for the development
// pairs: ATM IVs per anchor expiry with a mild smile on the wings
// (idempotent: points upsert)
func SeedVolSurface(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	// ATM IV mantissa per anchor expiry, at 7 decimals (8000000 == 80%)
	atmIV := map[int32]int64{
		1:  9000000,
		2:  8800000,
		7:  8000000,
		14: 7600000,
		21: 7300000,
		28: 7000000,
	}

	// Wing bump in mantissa units per 5 moneyness points away from ATM
	const wingStep int64 = 150000

	moneyness := []int32{80, 85, 90, 95, 100, 105, 110, 115, 120}

	for _, pairID := range []uuid.UUID{PairETHUSD, PairBTCUSD} {
		count := 0
		for _, expiry := range volatility.AnchorExpiries {
			for _, m := range moneyness {
				dist := int64(m - volatility.AtTheMoney)
				if dist < 0 {
					dist = -dist
				}
				iv := atmIV[expiry] + dist/5*wingStep

				_, err := s.VolPoint().
					WithPair(pairID).
					WithExpiry(expiry).
					WithMoneyness(m).
					WithIV(decimal.NewFromInt(iv), 7).
					Insert()
				if err != nil {
					return err
				}
				count++
			}
		}

		log.Infow("Calibrated volatility surface", "pair_id", pairID, "points", count)
	}

	return nil
}
