// README: Account storage contract shared by the Postgres, Mongo and memory backends.
package account

import (
	"context"

	"moto/internal/types"
)

// Store persists riders and drivers. The conditional methods report whether
// the guarded update matched; they never return ErrNotFound for a mismatch.
type Store interface {
	CreateRider(ctx context.Context, r *Rider) error
	CreateDriver(ctx context.Context, d *Driver) error
	GetRider(ctx context.Context, id types.ID) (*Rider, error)
	GetDriver(ctx context.Context, id types.ID) (*Driver, error)
	FindRiderByEmail(ctx context.Context, email string) (*Rider, error)
	FindDriverByEmail(ctx context.Context, email string) (*Driver, error)

	// ClaimDriver flips an available, verified, idle driver to busy on rideID.
	ClaimDriver(ctx context.Context, driverID, rideID types.ID) (bool, error)
	// ReleaseDriver makes the driver available again if rideID is still its active ride.
	ReleaseDriver(ctx context.Context, driverID, rideID types.ID) (bool, error)
	// RecordDriverTrip adds one ride and fare to the driver's totals and releases rideID.
	RecordDriverTrip(ctx context.Context, driverID, rideID types.ID, fare float64) error
	RecordRiderTrip(ctx context.Context, riderID types.ID) error
	SetRiderRating(ctx context.Context, riderID types.ID, rating float64) error
	SetDriverRating(ctx context.Context, driverID types.ID, rating float64) error

	// SetDriverAvailability is rejected (false) while the driver has an active ride.
	SetDriverAvailability(ctx context.Context, driverID types.ID, available bool, loc *types.Point) (bool, error)
	UpdateDriverLocation(ctx context.Context, driverID types.ID, p types.Point) error
}
