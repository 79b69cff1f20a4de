package dev

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hyperion/internal/domain/option"
	"hyperion/internal/testsupport/seeds"
)

// SeedPools creates the default pools plus weekly expiry tiers for each
// development pair (idempotent)
func SeedPools(ctx context.Context, s *seeds.Seeder) error {
	log := s.Log()

	// Bucket 0 is the catch-all pool; 7 and 28 are expiry tiers
	buckets := []int32{0, 7, 28}

	for _, pairID := range []uuid.UUID{PairETHUSD, PairBTCUSD} {
		for _, typ := range []option.Type{option.TypeCall, option.TypePut} {
			for _, bucket := range buckets {
				_, err := s.Pool().
					WithID(poolID(pairID, typ, bucket)).
					WithPair(pairID).
					WithType(typ).
					WithExpiryBucket(bucket).
					Insert()
				if err != nil {
					if strings.Contains(err.Error(), "duplicate key") {
						continue
					}
					return err
				}

				log.Infow("Created pool",
					"pair_id", pairID,
					"type", typ,
					"expiry_bucket", bucket,
				)
			}
		}
	}

	return nil
}

// poolID derives a stable pool ID from the strategy key so reseeding
// never duplicates pools
func poolID(pairID uuid.UUID, typ option.Type, bucket int32) uuid.UUID {
	name := fmt.Sprintf("%s:%s:%d", pairID, typ, bucket)
	return uuid.NewSHA1(pairID, []byte(name))
}
