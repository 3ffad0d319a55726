// README: Driver location service; keeps the account position and the geo index in step.
package location

import (
	"context"
	"errors"
	"log/slog"

	"moto/internal/apperr"
	"moto/internal/modules/account"
	"moto/internal/modules/realtime"
	"moto/internal/types"
)

const (
	nearbyLimit = 20
	// Extra candidates fetched from the index; some are filtered out as busy.
	nearbyOverscan = 3
)

// Accounts is the slice of account.Service this package writes through.
type Accounts interface {
	GetDriver(ctx context.Context, id types.ID) (*account.Driver, error)
	UpdateLocation(ctx context.Context, id types.ID, p types.Point) (*account.Driver, error)
	SetAvailability(ctx context.Context, id types.ID, available bool, loc *types.Point) (*account.Driver, error)
}

type Service struct {
	accounts Accounts
	geo      Store
	pub      realtime.Publisher
	log      *slog.Logger
}

func NewService(accounts Accounts, geo Store, pub realtime.Publisher, log *slog.Logger) *Service {
	if pub == nil {
		pub = realtime.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{accounts: accounts, geo: geo, pub: pub, log: log}
}

type driverLocationPayload struct {
	DriverID types.ID `json:"driver_id"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
}

// UpdateDriverLocation stores the driver's position on the account, indexes
// it and broadcasts a driver.location event.
func (s *Service) UpdateDriverLocation(ctx context.Context, driverID types.ID, p types.Point) (*account.Driver, error) {
	d, err := s.accounts.UpdateLocation(ctx, driverID, p)
	if err != nil {
		return nil, err
	}
	if d.IsAvailable {
		s.index(ctx, driverID, p)
	}
	realtime.Notify(ctx, s.pub, s.log, realtime.EventDriverLocation, driverLocationPayload{
		DriverID: driverID, Lat: p.Lat, Lng: p.Lng,
	})
	return d, nil
}

// SetAvailability toggles the driver online or offline. Offline drivers are
// dropped from the geo index.
func (s *Service) SetAvailability(ctx context.Context, driverID types.ID, available bool, loc *types.Point) (*account.Driver, error) {
	d, err := s.accounts.SetAvailability(ctx, driverID, available, loc)
	if err != nil {
		return nil, err
	}
	switch {
	case !available:
		if err := s.geo.RemoveDriver(ctx, driverID); err != nil {
			s.log.Warn("geo index remove failed", "driver", string(driverID), "err", err)
		}
	case d.Location != nil:
		s.index(ctx, driverID, *d.Location)
	}
	return d, nil
}

// NearbyDrivers returns available, verified drivers within radiusKm of p,
// nearest first.
func (s *Service) NearbyDrivers(ctx context.Context, p types.Point, radiusKm float64) ([]NearbyDriver, error) {
	if !p.Valid() {
		return nil, apperr.Validation("invalid location coordinates")
	}
	if radiusKm <= 0 {
		return nil, apperr.Validation("max distance must be positive")
	}
	candidates, err := s.geo.Nearby(ctx, p, radiusKm, nearbyLimit*nearbyOverscan)
	if err != nil {
		return nil, err
	}
	out := make([]NearbyDriver, 0, len(candidates))
	for _, c := range candidates {
		d, err := s.accounts.GetDriver(ctx, c.DriverID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if d.CanAccept() != nil {
			continue
		}
		c.DistanceKm = types.RoundCents(c.DistanceKm)
		c.Driver = d
		out = append(out, c)
		if len(out) == nearbyLimit {
			break
		}
	}
	return out, nil
}

func (s *Service) index(ctx context.Context, driverID types.ID, p types.Point) {
	if err := s.geo.SetDriver(ctx, driverID, p); err != nil {
		s.log.Warn("geo index update failed", "driver", string(driverID), "err", err)
	}
}
