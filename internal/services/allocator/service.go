package allocator

import (
	"context"

	"github.com/google/uuid"

	"hyperion/internal/domain/option"
	"hyperion/internal/domain/pool"
	"hyperion/pkg/auth"
	"hyperion/pkg/errors"
	"hyperion/pkg/logger"
)

// Service selects the ordered list of pools serving a strategy key
//
// Routes are explicit administrative mappings keyed by
// (pair, option type, model, expiry days). When no explicit route exists the
// service derives one from the registered pools: the default catch-all pool
// first, then every tier pool with bucket >= the requested days in increasing
// specificity order (descending bucket, nearest-and-above last). Route order
// decides lock outcomes, so any reordering is a breaking change.
type Service struct {
	repo   pool.Repository
	keeper *auth.Keeper
	log    *logger.Logger
}

// NewService creates a new pool allocator
func NewService(repo pool.Repository, keeper *auth.Keeper, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		keeper: keeper,
		log:    log,
	}
}

// SetRoute stores an explicit ordered route for a strategy key
// Requires the admin capability; every referenced pool must exist
func (s *Service) SetRoute(ctx context.Context, cap auth.Capability, r *pool.Route) error {
	if err := s.keeper.Verify(cap, auth.RoleAdmin); err != nil {
		return err
	}
	if !r.Type.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "unknown option type %q", r.Type)
	}
	if len(r.PoolIDs) == 0 {
		return errors.Wrap(errors.ErrInvalidInput, "route must name at least one pool")
	}

	for _, id := range r.PoolIDs {
		if _, err := s.repo.GetPool(ctx, id); err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.Wrapf(errors.ErrInvalidID, "route references unknown pool %s", id)
			}
			return errors.Wrap(err, "failed to check route pool")
		}
	}

	if err := s.repo.SaveRoute(ctx, r); err != nil {
		return errors.Wrap(err, "failed to save route")
	}

	s.log.Infow("pool route set",
		"pair_id", r.PairID,
		"type", r.Type,
		"model", r.Model,
		"expiry_days", r.ExpiryDays,
		"pools", len(r.PoolIDs),
	)
	return nil
}

// SelectPools returns the ordered pool ids serving the strategy key
func (s *Service) SelectPools(ctx context.Context, pairID uuid.UUID, typ option.Type, model string, expiryDays int32) ([]uuid.UUID, error) {
	r, err := s.repo.GetRoute(ctx, pairID, typ, model, expiryDays)
	if err == nil {
		return r.PoolIDs, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrap(err, "failed to load route")
	}

	// Derive from registered pools
	pools, err := s.repo.PoolsByStrategy(ctx, pairID, typ, model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list strategy pools")
	}

	ids := orderPools(pools, expiryDays)
	if len(ids) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound,
			"no pools serve pair=%s type=%s model=%s expiry=%dd", pairID, typ, model, expiryDays)
	}
	return ids, nil
}

// orderPools applies the nearest-and-above policy over strategy pools:
// default pool first, tier pools with bucket >= days by descending bucket
func orderPools(pools []*pool.Pool, days int32) []uuid.UUID {
	var def *pool.Pool
	var tiers []*pool.Pool
	for _, p := range pools {
		if p.IsDefault() {
			def = p
			continue
		}
		if p.ExpiryBucket >= days {
			tiers = append(tiers, p)
		}
	}

	// PoolsByStrategy already orders tiers by descending bucket
	ids := make([]uuid.UUID, 0, len(tiers)+1)
	if def != nil {
		ids = append(ids, def.ID)
	}
	for _, p := range tiers {
		ids = append(ids, p.ID)
	}
	return ids
}
