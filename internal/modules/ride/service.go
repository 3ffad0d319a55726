// README: Ride lifecycle service; owns ride transitions and issues account intents.
package ride

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"moto/internal/apperr"
	"moto/internal/modules/location"
	"moto/internal/modules/pricing"
	"moto/internal/modules/realtime"
	"moto/internal/types"
)

const defaultSearchRadiusKm = 10.0

// ErrPartialUpdate marks a ride transition that committed while one of its
// account side effects failed.
var ErrPartialUpdate = errors.New("ride updated but account bookkeeping failed")

type PartialUpdateError struct {
	Ride   *Ride
	Failed []string
	Err    error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("ride %s %s but %s failed: %v", e.Ride.ID, e.Ride.Status, strings.Join(e.Failed, ", "), e.Err)
}

func (e *PartialUpdateError) Is(target error) bool { return target == ErrPartialUpdate }

func (e *PartialUpdateError) Unwrap() error { return e.Err }

// Accounts is the set of intents the ride service issues against rider and
// driver accounts. account.Service satisfies it.
type Accounts interface {
	ClaimDriver(ctx context.Context, driverID, rideID types.ID) error
	ReleaseDriver(ctx context.Context, driverID, rideID types.ID) error
	RecordDriverTrip(ctx context.Context, driverID, rideID types.ID, fare float64) error
	RecordRiderTrip(ctx context.Context, riderID types.ID) error
	SetRating(ctx context.Context, rated types.Principal, rating float64) error
}

type Pricing interface {
	Quote(distanceKm float64) pricing.Quote
	MinimumFare() float64
}

type Service struct {
	store    Store
	accounts Accounts
	pricing  Pricing
	pub      realtime.Publisher
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, accounts Accounts, prices Pricing, pub realtime.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = realtime.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:    store,
		accounts: accounts,
		pricing:  prices,
		pub:      pub,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateCommand struct {
	RiderID       types.ID
	Pickup        Location
	Destination   Location
	PaymentMethod PaymentMethod
}

type CompleteCommand struct {
	RideID     types.ID
	DriverID   types.ID
	ActualFare *float64
}

// Estimate quotes distance and fare between two points without creating a ride.
func (s *Service) Estimate(pickup, destination types.Point) (pricing.Quote, error) {
	if !pickup.Valid() || !destination.Valid() {
		return pricing.Quote{}, apperr.Validation("invalid location coordinates")
	}
	return s.pricing.Quote(location.HaversineKm(pickup, destination)), nil
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Ride, error) {
	pickup, ok := cmd.Pickup.Point()
	if !ok {
		return nil, ErrInvalidLocation
	}
	dest, ok := cmd.Destination.Point()
	if !ok {
		return nil, ErrInvalidLocation
	}
	method := cmd.PaymentMethod
	if method == "" {
		method = PaymentCash
	}
	if !method.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("unknown payment method %q", method))
	}

	quote := s.pricing.Quote(location.HaversineKm(pickup, dest))
	r := &Ride{
		ID:            types.NewID(),
		RiderID:       cmd.RiderID,
		Pickup:        NewLocation(pickup, cmd.Pickup.Address),
		Destination:   NewLocation(dest, cmd.Destination.Address),
		DistanceKm:    quote.DistanceKm,
		EstimatedFare: quote.Fare,
		PaymentMethod: method,
		PaymentStatus: PaymentPending,
		Status:        StatusRequested,
		CreatedAt:     s.now(),
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("ride requested", "ride", string(r.ID), "rider", string(r.RiderID), "distance_km", r.DistanceKm)
	realtime.Notify(ctx, s.pub, s.log, realtime.EventRideRequested, r)
	return r, nil
}

// ListAvailable returns open rides newest first. With an origin, only rides
// whose pickup lies within radiusKm (default 10) are returned.
func (s *Service) ListAvailable(ctx context.Context, origin *types.Point, radiusKm float64) ([]*Ride, error) {
	q := AvailableQuery{Limit: availableLimit}
	if origin != nil {
		if !origin.Valid() {
			return nil, apperr.Validation("invalid location coordinates")
		}
		if radiusKm <= 0 {
			radiusKm = defaultSearchRadiusKm
		}
		q.Origin, q.RadiusKm = origin, radiusKm
	}
	return s.store.ListAvailable(ctx, q)
}

func (s *Service) Accept(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusRequested || r.DriverID != nil {
		return nil, ErrNoLongerAvailable
	}
	if err := s.accounts.ClaimDriver(ctx, driverID, rideID); err != nil {
		return nil, err
	}

	next := r.transition(StatusAccepted, s.now())
	next.DriverID = &driverID
	ok, err := s.store.UpdateStatus(ctx, next, r.Status, r.StatusVersion)
	if err != nil || !ok {
		if relErr := s.accounts.ReleaseDriver(ctx, driverID, rideID); relErr != nil {
			s.log.Error("release driver after lost accept", "ride", string(rideID), "driver", string(driverID), "err", relErr)
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrNoLongerAvailable
	}
	s.published(ctx, next)
	return next, nil
}

func (s *Service) Start(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	r, err := s.assigned(ctx, rideID, driverID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusAccepted {
		return nil, apperr.Conflict("ride must be accepted first")
	}
	next := r.transition(StatusInProgress, s.now())
	if err := s.commit(ctx, r, next); err != nil {
		return nil, err
	}
	s.published(ctx, next)
	return next, nil
}

// Complete finishes the ride and books the trip on both accounts. Account
// failures return the completed ride with a *PartialUpdateError.
func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) (*Ride, error) {
	r, err := s.assigned(ctx, cmd.RideID, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	if r.Status != StatusInProgress {
		return nil, apperr.Conflict("ride must be in progress")
	}
	fare := r.EstimatedFare
	if cmd.ActualFare != nil {
		fare = types.RoundCents(*cmd.ActualFare)
		if math.IsNaN(fare) || math.IsInf(fare, 0) || fare < s.pricing.MinimumFare() {
			return nil, apperr.Validation(fmt.Sprintf("actual fare must be at least %.2f", s.pricing.MinimumFare()))
		}
	}

	next := r.transition(StatusCompleted, s.now())
	next.ActualFare = &fare
	next.PaymentStatus = PaymentCompleted
	if err := s.commit(ctx, r, next); err != nil {
		return nil, err
	}

	var failed []string
	var errs []error
	if err := s.accounts.RecordDriverTrip(ctx, cmd.DriverID, r.ID, fare); err != nil {
		failed, errs = append(failed, "driver trip"), append(errs, err)
	}
	if err := s.accounts.RecordRiderTrip(ctx, r.RiderID); err != nil {
		failed, errs = append(failed, "rider trip"), append(errs, err)
	}
	s.published(ctx, next)
	if len(failed) > 0 {
		return next, s.partial(next, failed, errs)
	}
	return next, nil
}

// Cancel moves a non-terminal ride to cancelled. Only the owning rider or the
// assigned driver may cancel; an assigned driver is always released.
func (s *Service) Cancel(ctx context.Context, rideID types.ID, p types.Principal) (*Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	isRider := p.IsRider() && r.RiderID == p.ID
	isDriver := p.IsDriver() && r.HasDriver(p.ID)
	if !isRider && !isDriver {
		return nil, apperr.Forbidden("you can only cancel your own rides")
	}
	switch r.Status {
	case StatusCompleted:
		return nil, apperr.Conflict("cannot cancel completed ride")
	case StatusCancelled:
		return nil, apperr.Conflict("ride already cancelled")
	}

	next := r.transition(StatusCancelled, s.now())
	role := p.Role
	next.CancelledBy = &role
	if err := s.commit(ctx, r, next); err != nil {
		return nil, err
	}
	s.published(ctx, next)

	if r.DriverID != nil {
		if err := s.accounts.ReleaseDriver(ctx, *r.DriverID, r.ID); err != nil {
			return next, s.partial(next, []string{"driver release"}, []error{err})
		}
	}
	return next, nil
}

func (s *Service) History(ctx context.Context, p types.Principal) ([]*Ride, error) {
	switch {
	case p.IsRider():
		return s.store.ListByRider(ctx, p.ID, historyLimit)
	case p.IsDriver():
		return s.store.ListByDriver(ctx, p.ID, historyLimit)
	default:
		return nil, apperr.Forbidden("unknown principal")
	}
}

// Get returns a ride visible to p: its rider, its driver, or any driver while
// the ride is still open.
func (s *Service) Get(ctx context.Context, rideID types.ID, p types.Principal) (*Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsRider() && r.RiderID == p.ID:
	case p.IsDriver() && r.HasDriver(p.ID):
	case p.IsDriver() && r.Status == StatusRequested && r.DriverID == nil:
	default:
		return nil, ErrNotParticipant
	}
	return r, nil
}

// assigned loads a ride and checks driverID is its driver.
func (s *Service) assigned(ctx context.Context, rideID, driverID types.ID) (*Ride, error) {
	r, err := s.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.DriverID == nil {
		return nil, ErrNoDriverAssigned
	}
	if *r.DriverID != driverID {
		return nil, ErrNotAssigned
	}
	return r, nil
}

func (s *Service) commit(ctx context.Context, cur, next *Ride) error {
	if !CanTransition(cur.Status, next.Status) {
		return apperr.Conflict(fmt.Sprintf("cannot move ride from %s to %s", cur.Status, next.Status))
	}
	ok, err := s.store.UpdateStatus(ctx, next, cur.Status, cur.StatusVersion)
	if err != nil {
		return err
	}
	if !ok {
		return ErrStale
	}
	return nil
}

func (s *Service) partial(r *Ride, failed []string, errs []error) error {
	err := &PartialUpdateError{Ride: r, Failed: failed, Err: errors.Join(errs...)}
	s.log.Error("partial ride update", "ride", string(r.ID), "status", string(r.Status), "failed", failed, "err", err.Err)
	return err
}

func (s *Service) published(ctx context.Context, r *Ride) {
	s.log.Info("ride status changed", "ride", string(r.ID), "status", string(r.Status))
	realtime.Notify(ctx, s.pub, s.log, realtime.EventRideStatus, r)
}
