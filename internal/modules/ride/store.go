// README: Ride persistence contract shared by the Postgres, Mongo and memory stores.
package ride

import (
	"context"

	"moto/internal/types"
)

const (
	availableLimit = 20
	historyLimit   = 50
)

// Side names whose rating a ride field holds.
type Side string

const (
	// SideDriver is the rider's rating of the driver.
	SideDriver Side = "driver"
	// SideRider is the driver's rating of the rider.
	SideRider Side = "rider"
)

type AvailableQuery struct {
	Origin   *types.Point
	RadiusKm float64
	Limit    int
}

type Store interface {
	Create(ctx context.Context, r *Ride) error
	Get(ctx context.Context, id types.ID) (*Ride, error)
	// UpdateStatus writes next only if the stored ride still has status from
	// and version. It reports whether the write happened.
	UpdateStatus(ctx context.Context, next *Ride, from Status, version int) (bool, error)
	ListAvailable(ctx context.Context, q AvailableQuery) ([]*Ride, error)
	ListByRider(ctx context.Context, riderID types.ID, limit int) ([]*Ride, error)
	ListByDriver(ctx context.Context, driverID types.ID, limit int) ([]*Ride, error)
	// SetRating stores a rating on a completed ride; false if the ride is
	// missing or not completed.
	SetRating(ctx context.Context, id types.ID, side Side, rating float64) (bool, error)
	// AverageRating is the mean rating for side over the participant's
	// completed rides that carry one, with the number of such rides.
	AverageRating(ctx context.Context, side Side, participantID types.ID) (float64, int, error)
}
