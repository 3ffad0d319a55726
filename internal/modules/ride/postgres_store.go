// README: Ride store backed by PostgreSQL; transitions are conditional updates.
package ride

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moto/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

const rideColumns = `id, rider_id, driver_id,
	pickup_lng, pickup_lat, pickup_address, dest_lng, dest_lat, dest_address,
	distance_km, estimated_fare, actual_fare, payment_method, payment_status,
	status, status_version, created_at, accepted_at, started_at, completed_at, cancelled_at,
	cancelled_by, rider_rating, driver_rating`

// Great-circle distance in km from ($1 lat, $2 lng) to the pickup point.
const pickupDistanceSQL = `2 * 6371 * asin(sqrt(
	power(sin(radians(pickup_lat - $1) / 2), 2) +
	cos(radians($1)) * cos(radians(pickup_lat)) * power(sin(radians(pickup_lng - $2) / 2), 2)))`

func (s *PostgresStore) Create(ctx context.Context, r *Ride) error {
	pickup, _ := r.Pickup.Point()
	dest, _ := r.Destination.Point()
	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (`+rideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		string(r.ID), string(r.RiderID), idString(r.DriverID),
		pickup.Lng, pickup.Lat, r.Pickup.Address, dest.Lng, dest.Lat, r.Destination.Address,
		r.DistanceKm, r.EstimatedFare, r.ActualFare, string(r.PaymentMethod), string(r.PaymentStatus),
		string(r.Status), r.StatusVersion, r.CreatedAt, r.AcceptedAt, r.StartedAt, r.CompletedAt, r.CancelledAt,
		roleString(r.CancelledBy), r.RiderRating, r.DriverRating,
	)
	if err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	r, err := scanRide(s.db.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, next *Ride, from Status, version int) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE rides
		SET status = $1,
		    status_version = $2,
		    driver_id = $3,
		    actual_fare = $4,
		    payment_status = $5,
		    accepted_at = $6,
		    started_at = $7,
		    completed_at = $8,
		    cancelled_at = $9,
		    cancelled_by = $10
		WHERE id = $11 AND status = $12 AND status_version = $13`,
		string(next.Status), next.StatusVersion, idString(next.DriverID),
		next.ActualFare, string(next.PaymentStatus),
		next.AcceptedAt, next.StartedAt, next.CompletedAt, next.CancelledAt,
		roleString(next.CancelledBy),
		string(next.ID), string(from), version,
	)
	if err != nil {
		return false, fmt.Errorf("update ride status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListAvailable(ctx context.Context, q AvailableQuery) ([]*Ride, error) {
	if q.Origin == nil {
		return s.query(ctx, `
			SELECT `+rideColumns+` FROM rides
			WHERE status = 'requested' AND driver_id IS NULL
			ORDER BY created_at DESC
			LIMIT $1`, q.Limit)
	}
	return s.query(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE status = 'requested' AND driver_id IS NULL
		  AND `+pickupDistanceSQL+` <= $3
		ORDER BY created_at DESC
		LIMIT $4`, q.Origin.Lat, q.Origin.Lng, q.RadiusKm, q.Limit)
}

func (s *PostgresStore) ListByRider(ctx context.Context, riderID types.ID, limit int) ([]*Ride, error) {
	return s.query(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE rider_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(riderID), limit)
}

func (s *PostgresStore) ListByDriver(ctx context.Context, driverID types.ID, limit int) ([]*Ride, error) {
	return s.query(ctx, `
		SELECT `+rideColumns+` FROM rides
		WHERE driver_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(driverID), limit)
}

func (s *PostgresStore) SetRating(ctx context.Context, id types.ID, side Side, rating float64) (bool, error) {
	column := ratingColumn(side)
	tag, err := s.db.Exec(ctx,
		`UPDATE rides SET `+column+` = $2 WHERE id = $1 AND status = 'completed'`,
		string(id), rating,
	)
	if err != nil {
		return false, fmt.Errorf("set ride rating: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) AverageRating(ctx context.Context, side Side, participantID types.ID) (float64, int, error) {
	column := ratingColumn(side)
	owner := "rider_id"
	if side == SideDriver {
		owner = "driver_id"
	}
	var avg *float64
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT AVG(`+column+`), COUNT(`+column+`)
		FROM rides
		WHERE `+owner+` = $1 AND status = 'completed' AND `+column+` IS NOT NULL`,
		string(participantID),
	).Scan(&avg, &n)
	if err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	if avg == nil {
		return 0, 0, nil
	}
	return *avg, n, nil
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...any) ([]*Ride, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query rides: %w", err)
	}
	defer rows.Close()
	var out []*Ride
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRide(row pgx.Row) (*Ride, error) {
	var (
		r                       Ride
		driverID, cancelledBy   *string
		pLng, pLat, dLng, dLat  float64
		pAddr, dAddr            string
		method, payment, status string
		acceptedAt, startedAt   *time.Time
		completedAt, cancelled  *time.Time
	)
	err := row.Scan(
		&r.ID, &r.RiderID, &driverID,
		&pLng, &pLat, &pAddr, &dLng, &dLat, &dAddr,
		&r.DistanceKm, &r.EstimatedFare, &r.ActualFare, &method, &payment,
		&status, &r.StatusVersion, &r.CreatedAt, &acceptedAt, &startedAt, &completedAt, &cancelled,
		&cancelledBy, &r.RiderRating, &r.DriverRating,
	)
	if err != nil {
		return nil, err
	}
	r.Pickup = NewLocation(types.Point{Lat: pLat, Lng: pLng}, pAddr)
	r.Destination = NewLocation(types.Point{Lat: dLat, Lng: dLng}, dAddr)
	r.PaymentMethod = PaymentMethod(method)
	r.PaymentStatus = PaymentStatus(payment)
	r.Status = Status(status)
	r.AcceptedAt, r.StartedAt, r.CompletedAt, r.CancelledAt = acceptedAt, startedAt, completedAt, cancelled
	if driverID != nil {
		id := types.ID(*driverID)
		r.DriverID = &id
	}
	if cancelledBy != nil {
		role := types.Role(*cancelledBy)
		r.CancelledBy = &role
	}
	return &r, nil
}

func ratingColumn(side Side) string {
	if side == SideDriver {
		return "driver_rating"
	}
	return "rider_rating"
}

func idString(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func roleString(v *types.Role) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
