// README: Account store backed by PostgreSQL.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"moto/internal/types"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

const riderColumns = `id, name, email, phone, password_hash, rating, total_rides, created_at`

const driverColumns = `id, name, email, phone, password_hash, rating, total_rides, created_at,
	bike_model, license_plate, license_number, is_verified, is_available, active_ride_id,
	location_lat, location_lng, earnings`

func (s *PostgresStore) CreateRider(ctx context.Context, r *Rider) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO riders (`+riderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(r.ID), r.Name, r.Email, r.Phone, r.PasswordHash, r.Rating, r.TotalRides, r.CreatedAt,
	)
	return mapInsertErr(err)
}

func (s *PostgresStore) CreateDriver(ctx context.Context, d *Driver) error {
	var lat, lng *float64
	if d.Location != nil {
		lat, lng = &d.Location.Lat, &d.Location.Lng
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (`+driverColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		string(d.ID), d.Name, d.Email, d.Phone, d.PasswordHash, d.Rating, d.TotalRides, d.CreatedAt,
		d.BikeModel, d.LicensePlate, d.LicenseNumber, d.IsVerified, d.IsAvailable, idPtr(d.ActiveRideID),
		lat, lng, d.Earnings,
	)
	return mapInsertErr(err)
}

func (s *PostgresStore) GetRider(ctx context.Context, id types.ID) (*Rider, error) {
	return scanRider(s.db.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE id = $1`, string(id)))
}

func (s *PostgresStore) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	return scanDriver(s.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, string(id)))
}

func (s *PostgresStore) FindRiderByEmail(ctx context.Context, email string) (*Rider, error) {
	return scanRider(s.db.QueryRow(ctx, `SELECT `+riderColumns+` FROM riders WHERE lower(email) = lower($1)`, email))
}

func (s *PostgresStore) FindDriverByEmail(ctx context.Context, email string) (*Driver, error) {
	return scanDriver(s.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE lower(email) = lower($1)`, email))
}

func (s *PostgresStore) ClaimDriver(ctx context.Context, driverID, rideID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET is_available = FALSE, active_ride_id = $2
		WHERE id = $1 AND is_available AND is_verified AND active_ride_id IS NULL`,
		string(driverID), string(rideID),
	)
	if err != nil {
		return false, fmt.Errorf("claim driver: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ReleaseDriver(ctx context.Context, driverID, rideID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET is_available = TRUE, active_ride_id = NULL
		WHERE id = $1 AND active_ride_id = $2`,
		string(driverID), string(rideID),
	)
	if err != nil {
		return false, fmt.Errorf("release driver: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) RecordDriverTrip(ctx context.Context, driverID, rideID types.ID, fare float64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET total_rides = total_rides + 1,
		    earnings = round((earnings + $2)::numeric, 2)::double precision,
		    is_available = CASE WHEN active_ride_id = $3 THEN TRUE ELSE is_available END,
		    active_ride_id = CASE WHEN active_ride_id = $3 THEN NULL ELSE active_ride_id END
		WHERE id = $1`,
		string(driverID), fare, string(rideID),
	)
	if err != nil {
		return fmt.Errorf("record driver trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecordRiderTrip(ctx context.Context, riderID types.ID) error {
	return s.execOne(ctx, `UPDATE riders SET total_rides = total_rides + 1 WHERE id = $1`, string(riderID))
}

func (s *PostgresStore) SetRiderRating(ctx context.Context, riderID types.ID, rating float64) error {
	return s.execOne(ctx, `UPDATE riders SET rating = $2 WHERE id = $1`, string(riderID), rating)
}

func (s *PostgresStore) SetDriverRating(ctx context.Context, driverID types.ID, rating float64) error {
	return s.execOne(ctx, `UPDATE drivers SET rating = $2 WHERE id = $1`, string(driverID), rating)
}

func (s *PostgresStore) SetDriverAvailability(ctx context.Context, driverID types.ID, available bool, loc *types.Point) (bool, error) {
	var lat, lng *float64
	if loc != nil {
		lat, lng = &loc.Lat, &loc.Lng
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET is_available = $2,
		    location_lat = COALESCE($3, location_lat),
		    location_lng = COALESCE($4, location_lng)
		WHERE id = $1 AND active_ride_id IS NULL`,
		string(driverID), available, lat, lng,
	)
	if err != nil {
		return false, fmt.Errorf("set availability: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) UpdateDriverLocation(ctx context.Context, driverID types.ID, p types.Point) error {
	return s.execOne(ctx, `UPDATE drivers SET location_lat = $2, location_lng = $3 WHERE id = $1`,
		string(driverID), p.Lat, p.Lng)
}

func (s *PostgresStore) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := s.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRider(row pgx.Row) (*Rider, error) {
	var r Rider
	err := row.Scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.PasswordHash, &r.Rating, &r.TotalRides, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	var activeRide *string
	var lat, lng *float64
	err := row.Scan(
		&d.ID, &d.Name, &d.Email, &d.Phone, &d.PasswordHash, &d.Rating, &d.TotalRides, &d.CreatedAt,
		&d.BikeModel, &d.LicensePlate, &d.LicenseNumber, &d.IsVerified, &d.IsAvailable, &activeRide,
		&lat, &lng, &d.Earnings,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if activeRide != nil {
		id := types.ID(*activeRide)
		d.ActiveRideID = &id
	}
	if lat != nil && lng != nil {
		d.Location = &types.Point{Lat: *lat, Lng: *lng}
	}
	return &d, nil
}

func mapInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
