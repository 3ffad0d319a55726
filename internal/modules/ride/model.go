// README: Ride aggregate, status definitions and the transition table.
package ride

import (
	"time"

	"moto/internal/apperr"
	"moto/internal/types"
)

type Status string

const (
	StatusRequested  Status = "requested"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// AllowedTransitions represents the ride state flow as code. Terminal states
// have no entry.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:  {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	_, ok := AllowedTransitions[s]
	return !ok
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentMobile:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

var (
	ErrNotFound          = apperr.NotFound("ride not found")
	ErrInvalidLocation   = apperr.Validation("pickup location and destination with coordinates are required")
	ErrNoLongerAvailable = apperr.Conflict("ride no longer available")
	ErrNoDriverAssigned  = apperr.Conflict("ride has no assigned driver")
	ErrStale             = apperr.Conflict("ride was modified concurrently, retry")
	ErrNotAssigned       = apperr.Forbidden("you can only update your own rides")
	ErrNotParticipant    = apperr.Forbidden("you can only access rides you participated in")
)

// Location is a GeoJSON point with an optional street address. Coordinates
// are [longitude, latitude].
type Location struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
	Address     string    `json:"address,omitempty" bson:"address,omitempty"`
}

func NewLocation(p types.Point, address string) Location {
	return Location{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}, Address: address}
}

// Point validates the coordinate pair and returns it as a types.Point.
func (l Location) Point() (types.Point, bool) {
	if len(l.Coordinates) != 2 {
		return types.Point{}, false
	}
	p := types.Point{Lat: l.Coordinates[1], Lng: l.Coordinates[0]}
	return p, p.Valid()
}

type Ride struct {
	ID            types.ID      `json:"id" bson:"_id"`
	RiderID       types.ID      `json:"rider_id" bson:"rider_id"`
	DriverID      *types.ID     `json:"driver_id" bson:"driver_id"`
	Pickup        Location      `json:"pickup_location" bson:"pickup_location"`
	Destination   Location      `json:"destination" bson:"destination"`
	DistanceKm    float64       `json:"distance" bson:"distance"`
	EstimatedFare float64       `json:"estimated_fare" bson:"estimated_fare"`
	ActualFare    *float64      `json:"actual_fare,omitempty" bson:"actual_fare"`
	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status" bson:"payment_status"`
	Status        Status        `json:"status" bson:"status"`
	StatusVersion int           `json:"status_version" bson:"status_version"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	AcceptedAt    *time.Time    `json:"accepted_at,omitempty" bson:"accepted_at"`
	StartedAt     *time.Time    `json:"started_at,omitempty" bson:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" bson:"completed_at"`
	CancelledAt   *time.Time    `json:"cancelled_at,omitempty" bson:"cancelled_at"`
	CancelledBy   *types.Role   `json:"cancelled_by,omitempty" bson:"cancelled_by"`
	// RiderRating is the driver's rating of the rider; DriverRating the reverse.
	RiderRating  *float64 `json:"rider_rating,omitempty" bson:"rider_rating"`
	DriverRating *float64 `json:"driver_rating,omitempty" bson:"driver_rating"`
}

func (r *Ride) HasDriver(id types.ID) bool {
	return r.DriverID != nil && *r.DriverID == id
}

// transition returns a copy of r moved to status to, with the matching
// timestamp stamped and the version bumped.
func (r *Ride) transition(to Status, at time.Time) *Ride {
	next := r.clone()
	next.Status = to
	next.StatusVersion++
	switch to {
	case StatusAccepted:
		next.AcceptedAt = &at
	case StatusInProgress:
		next.StartedAt = &at
	case StatusCompleted:
		next.CompletedAt = &at
	case StatusCancelled:
		next.CancelledAt = &at
	}
	return next
}

func (r *Ride) clone() *Ride {
	cp := *r
	cp.Pickup.Coordinates = append([]float64(nil), r.Pickup.Coordinates...)
	cp.Destination.Coordinates = append([]float64(nil), r.Destination.Coordinates...)
	cp.DriverID = clonePtr(r.DriverID)
	cp.ActualFare = clonePtr(r.ActualFare)
	cp.AcceptedAt = clonePtr(r.AcceptedAt)
	cp.StartedAt = clonePtr(r.StartedAt)
	cp.CompletedAt = clonePtr(r.CompletedAt)
	cp.CancelledAt = clonePtr(r.CancelledAt)
	cp.CancelledBy = clonePtr(r.CancelledBy)
	cp.RiderRating = clonePtr(r.RiderRating)
	cp.DriverRating = clonePtr(r.DriverRating)
	return &cp
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
