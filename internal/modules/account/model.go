// README: Rider and driver account aggregates.
package account

import (
	"time"

	"moto/internal/apperr"
	"moto/internal/types"
)

var (
	ErrNotFound     = apperr.NotFound("account not found")
	ErrDuplicate    = apperr.Conflict("account with this email or license plate already exists")
	ErrActiveRide   = apperr.Conflict("driver has an active ride")
	ErrNotVerified  = apperr.Precondition("driver must be verified")
	ErrNotAvailable = apperr.Precondition("driver must be available")
	ErrNoDriver     = apperr.Precondition("driver account not found")
)

type Profile struct {
	ID           types.ID  `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	Phone        string    `json:"phone" bson:"phone"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Rating       *float64  `json:"rating,omitempty" bson:"rating"`
	TotalRides   int       `json:"total_rides" bson:"total_rides"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

type Rider struct {
	Profile `bson:",inline"`
}

type Driver struct {
	Profile       `bson:",inline"`
	BikeModel     string       `json:"bike_model" bson:"bike_model"`
	LicensePlate  string       `json:"license_plate" bson:"license_plate"`
	LicenseNumber string       `json:"license_number" bson:"license_number"`
	IsVerified    bool         `json:"is_verified" bson:"is_verified"`
	IsAvailable   bool         `json:"is_available" bson:"is_available"`
	ActiveRideID  *types.ID    `json:"active_ride_id,omitempty" bson:"active_ride_id"`
	Location      *types.Point `json:"location,omitempty" bson:"location"`
	Earnings      float64      `json:"earnings" bson:"earnings"`
}

// CanAccept reports whether the driver may take a new ride right now.
func (d *Driver) CanAccept() error {
	if !d.IsVerified {
		return ErrNotVerified
	}
	if !d.IsAvailable || d.ActiveRideID != nil {
		return ErrNotAvailable
	}
	return nil
}
