// README: Nearby-driver query results.
package location

import (
	"moto/internal/modules/account"
	"moto/internal/types"
)

type NearbyDriver struct {
	DriverID   types.ID        `json:"driver_id"`
	Position   types.Point     `json:"position"`
	DistanceKm float64         `json:"distance_km"`
	Driver     *account.Driver `json:"driver,omitempty"`
}
