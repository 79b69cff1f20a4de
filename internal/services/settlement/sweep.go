package settlement

import (
	"context"

	"hyperion/pkg/auth"
)

// SweepResult summarizes one expiry sweep pass
type SweepResult struct {
	Scanned   int
	Settled   int
	Exercised int
	Expired   int
	Failed    int
}

// ExpirySweep settles every active option whose expiration has passed,
// up to limit per pass. Failures on individual options are logged and
// skipped so one bad option cannot wedge the sweep
func (s *Service) ExpirySweep(ctx context.Context, cap auth.Capability, limit int) (*SweepResult, error) {
	if err := s.keeper.Verify(cap, auth.RoleManager); err != nil {
		return nil, err
	}

	expired, err := s.options.GetActiveExpiredBefore(ctx, s.now(), limit)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Scanned: len(expired)}
	for _, o := range expired {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		spotQuote, err := s.prices.GetUnderlyingPrice(ctx, o.PairID)
		if err != nil {
			res.Failed++
			s.log.Errorf("sweep: price lookup for option %s: %v", o.ID, err)
			continue
		}

		inTheMoney := o.Payout(spotQuote.Normalized()).Sign() > 0
		if inTheMoney {
			err = s.Exercise(ctx, cap, o.ID)
		} else {
			err = s.Unlock(ctx, cap, o.ID)
		}
		if err != nil {
			res.Failed++
			s.log.Errorf("sweep: settle option %s: %v", o.ID, err)
			continue
		}

		res.Settled++
		if inTheMoney {
			res.Exercised++
		} else {
			res.Expired++
		}
	}

	return res, nil
}
