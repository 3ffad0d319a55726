// README: Account aggregate service; the only writer of rider/driver state.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moto/internal/apperr"
	"moto/internal/types"
)

type Service struct {
	store      Store
	autoVerify bool
}

// NewService builds the service. autoVerify marks newly registered drivers as
// verified, which is what the demo deployment does.
func NewService(store Store, autoVerify bool) *Service {
	return &Service{store: store, autoVerify: autoVerify}
}

type RegisterRiderCommand struct {
	Name         string
	Email        string
	Phone        string
	PasswordHash string
}

type RegisterDriverCommand struct {
	Name          string
	Email         string
	Phone         string
	PasswordHash  string
	BikeModel     string
	LicensePlate  string
	LicenseNumber string
}

func (s *Service) RegisterRider(ctx context.Context, cmd RegisterRiderCommand) (*Rider, error) {
	p, err := newProfile(cmd.Name, cmd.Email, cmd.Phone, cmd.PasswordHash)
	if err != nil {
		return nil, err
	}
	r := &Rider{Profile: p}
	if err := s.store.CreateRider(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) RegisterDriver(ctx context.Context, cmd RegisterDriverCommand) (*Driver, error) {
	p, err := newProfile(cmd.Name, cmd.Email, cmd.Phone, cmd.PasswordHash)
	if err != nil {
		return nil, err
	}
	d := &Driver{
		Profile:       p,
		BikeModel:     strings.TrimSpace(cmd.BikeModel),
		LicensePlate:  strings.ToUpper(strings.TrimSpace(cmd.LicensePlate)),
		LicenseNumber: strings.TrimSpace(cmd.LicenseNumber),
		IsVerified:    s.autoVerify,
	}
	if d.BikeModel == "" || d.LicensePlate == "" || d.LicenseNumber == "" {
		return nil, apperr.Validation("all fields are required")
	}
	if err := s.store.CreateDriver(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetRider(ctx context.Context, id types.ID) (*Rider, error) {
	return s.store.GetRider(ctx, id)
}

func (s *Service) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.GetDriver(ctx, id)
}

func (s *Service) FindRiderByEmail(ctx context.Context, email string) (*Rider, error) {
	return s.store.FindRiderByEmail(ctx, normalizeEmail(email))
}

func (s *Service) FindDriverByEmail(ctx context.Context, email string) (*Driver, error) {
	return s.store.FindDriverByEmail(ctx, normalizeEmail(email))
}

// ClaimDriver marks the driver busy on rideID. Every refusal is a
// precondition failure: the driver, not the ride, is ineligible.
func (s *Service) ClaimDriver(ctx context.Context, driverID, rideID types.ID) error {
	d, err := s.store.GetDriver(ctx, driverID)
	if errors.Is(err, ErrNotFound) {
		return ErrNoDriver
	}
	if err != nil {
		return err
	}
	if err := d.CanAccept(); err != nil {
		return err
	}
	ok, err := s.store.ClaimDriver(ctx, driverID, rideID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAvailable
	}
	return nil
}

// ReleaseDriver frees the driver if it is still bound to rideID. Releasing a
// driver that already moved on is a no-op.
func (s *Service) ReleaseDriver(ctx context.Context, driverID, rideID types.ID) error {
	_, err := s.store.ReleaseDriver(ctx, driverID, rideID)
	return err
}

func (s *Service) RecordDriverTrip(ctx context.Context, driverID, rideID types.ID, fare float64) error {
	return s.store.RecordDriverTrip(ctx, driverID, rideID, fare)
}

func (s *Service) RecordRiderTrip(ctx context.Context, riderID types.ID) error {
	return s.store.RecordRiderTrip(ctx, riderID)
}

// SetRating stores the displayed rating of the rated party.
func (s *Service) SetRating(ctx context.Context, rated types.Principal, rating float64) error {
	if !(rating >= 1 && rating <= 5) {
		return apperr.Validation("rating must be between 1 and 5")
	}
	switch rated.Role {
	case types.RoleRider:
		return s.store.SetRiderRating(ctx, rated.ID, rating)
	case types.RoleDriver:
		return s.store.SetDriverRating(ctx, rated.ID, rating)
	default:
		return fmt.Errorf("set rating: unknown role %q", rated.Role)
	}
}

// SetAvailability toggles the driver online/offline. It is refused while the
// driver is assigned to a ride.
func (s *Service) SetAvailability(ctx context.Context, driverID types.ID, available bool, loc *types.Point) (*Driver, error) {
	if loc != nil && !loc.Valid() {
		return nil, apperr.Validation("invalid location coordinates")
	}
	ok, err := s.store.SetDriverAvailability(ctx, driverID, available, loc)
	if err != nil {
		return nil, err
	}
	d, err := s.store.GetDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrActiveRide
	}
	return d, nil
}

func (s *Service) UpdateLocation(ctx context.Context, driverID types.ID, p types.Point) (*Driver, error) {
	if !p.Valid() {
		return nil, apperr.Validation("invalid location coordinates")
	}
	if err := s.store.UpdateDriverLocation(ctx, driverID, p); err != nil {
		return nil, err
	}
	return s.store.GetDriver(ctx, driverID)
}

func newProfile(name, email, phone, hash string) (Profile, error) {
	name, phone, email = strings.TrimSpace(name), strings.TrimSpace(phone), normalizeEmail(email)
	if name == "" || email == "" || phone == "" || hash == "" {
		return Profile{}, apperr.Validation("all fields are required")
	}
	if !strings.Contains(email, "@") {
		return Profile{}, apperr.Validation("invalid email")
	}
	return Profile{
		ID:           types.NewID(),
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
