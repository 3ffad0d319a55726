// README: Post-ride ratings and the participant rating recompute.
package ride

import (
	"context"

	"moto/internal/apperr"
	"moto/internal/types"
)

// RateRide records rater's rating of the other participant on a completed
// ride and recomputes that participant's displayed rating as the mean over
// all of their rated completed rides. Re-rating overwrites the previous value.
func (s *Service) RateRide(ctx context.Context, rideID types.ID, rater types.Principal, rating float64) (*Ride, error) {
	if !(rating >= 1 && rating <= 5) {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusCompleted {
		return nil, apperr.Conflict("can only rate completed rides")
	}

	var side Side
	var rated types.Principal
	switch {
	case rater.IsRider() && r.RiderID == rater.ID:
		side, rated = SideDriver, types.DriverPrincipal(*r.DriverID)
	case rater.IsDriver() && r.HasDriver(rater.ID):
		side, rated = SideRider, types.RiderPrincipal(r.RiderID)
	default:
		return nil, apperr.Forbidden("you can only rate rides you participated in")
	}

	ok, err := s.store.SetRating(ctx, rideID, side, rating)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStale
	}
	v := rating
	if side == SideDriver {
		r.DriverRating = &v
	} else {
		r.RiderRating = &v
	}

	if err := s.recomputeRating(ctx, side, rated); err != nil {
		return r, s.partial(r, []string{string(side) + " rating"}, []error{err})
	}
	return r, nil
}

func (s *Service) recomputeRating(ctx context.Context, side Side, rated types.Principal) error {
	avg, n, err := s.store.AverageRating(ctx, side, rated.ID)
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return s.accounts.SetRating(ctx, rated, types.RoundTenths(avg))
}
