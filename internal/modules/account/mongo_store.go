// README: Account store backed by MongoDB (one collection per role).
package account

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moto/internal/types"
)

const (
	ridersCollection  = "riders"
	driversCollection = "drivers"
)

type MongoStore struct {
	riders  *mongo.Collection
	drivers *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		riders:  db.Collection(ridersCollection),
		drivers: db.Collection(driversCollection),
	}
}

var _ Store = (*MongoStore)(nil)

// EnsureIndexes creates the uniqueness constraints registration relies on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	caseInsensitive := options.Index().SetUnique(true).
		SetCollation(&options.Collation{Locale: "en", Strength: 2})
	if _, err := s.riders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: caseInsensitive,
	}); err != nil {
		return fmt.Errorf("riders email index: %w", err)
	}
	if _, err := s.drivers.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: caseInsensitive},
		{Keys: bson.D{{Key: "license_plate", Value: 1}}, Options: caseInsensitive},
	}); err != nil {
		return fmt.Errorf("drivers indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateRider(ctx context.Context, r *Rider) error {
	_, err := s.riders.InsertOne(ctx, r)
	return mapMongoInsertErr(err)
}

func (s *MongoStore) CreateDriver(ctx context.Context, d *Driver) error {
	_, err := s.drivers.InsertOne(ctx, d)
	return mapMongoInsertErr(err)
}

func (s *MongoStore) GetRider(ctx context.Context, id types.ID) (*Rider, error) {
	var r Rider
	if err := findOne(ctx, s.riders, bson.M{"_id": id}, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	var d Driver
	if err := findOne(ctx, s.drivers, bson.M{"_id": id}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *MongoStore) FindRiderByEmail(ctx context.Context, email string) (*Rider, error) {
	var r Rider
	if err := findOneByEmail(ctx, s.riders, email, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) FindDriverByEmail(ctx context.Context, email string) (*Driver, error) {
	var d Driver
	if err := findOneByEmail(ctx, s.drivers, email, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *MongoStore) ClaimDriver(ctx context.Context, driverID, rideID types.ID) (bool, error) {
	res, err := s.drivers.UpdateOne(ctx,
		bson.M{"_id": driverID, "is_available": true, "is_verified": true, "active_ride_id": nil},
		bson.M{"$set": bson.M{"is_available": false, "active_ride_id": rideID}},
	)
	if err != nil {
		return false, fmt.Errorf("claim driver: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) ReleaseDriver(ctx context.Context, driverID, rideID types.ID) (bool, error) {
	res, err := s.drivers.UpdateOne(ctx,
		bson.M{"_id": driverID, "active_ride_id": rideID},
		bson.M{"$set": bson.M{"is_available": true, "active_ride_id": nil}},
	)
	if err != nil {
		return false, fmt.Errorf("release driver: %w", err)
	}
	return res.MatchedCount == 1, nil
}

// RecordDriverTrip runs as a single pipeline update so the counters and the
// release are applied to the same document version.
func (s *MongoStore) RecordDriverTrip(ctx context.Context, driverID, rideID types.ID, fare float64) error {
	holdsRide := bson.A{"$active_ride_id", rideID}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"total_rides":    bson.M{"$add": bson.A{"$total_rides", 1}},
			"earnings":       bson.M{"$round": bson.A{bson.M{"$add": bson.A{"$earnings", fare}}, 2}},
			"is_available":   bson.M{"$cond": bson.A{bson.M{"$eq": holdsRide}, true, "$is_available"}},
			"active_ride_id": bson.M{"$cond": bson.A{bson.M{"$eq": holdsRide}, nil, "$active_ride_id"}},
		}}},
	}
	res, err := s.drivers.UpdateOne(ctx, bson.M{"_id": driverID}, update)
	if err != nil {
		return fmt.Errorf("record driver trip: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) RecordRiderTrip(ctx context.Context, riderID types.ID) error {
	return updateOne(ctx, s.riders, riderID, bson.M{"$inc": bson.M{"total_rides": 1}})
}

func (s *MongoStore) SetRiderRating(ctx context.Context, riderID types.ID, rating float64) error {
	return updateOne(ctx, s.riders, riderID, bson.M{"$set": bson.M{"rating": rating}})
}

func (s *MongoStore) SetDriverRating(ctx context.Context, driverID types.ID, rating float64) error {
	return updateOne(ctx, s.drivers, driverID, bson.M{"$set": bson.M{"rating": rating}})
}

func (s *MongoStore) SetDriverAvailability(ctx context.Context, driverID types.ID, available bool, loc *types.Point) (bool, error) {
	set := bson.M{"is_available": available}
	if loc != nil {
		set["location"] = *loc
	}
	res, err := s.drivers.UpdateOne(ctx,
		bson.M{"_id": driverID, "active_ride_id": nil},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("set availability: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) UpdateDriverLocation(ctx context.Context, driverID types.ID, p types.Point) error {
	return updateOne(ctx, s.drivers, driverID, bson.M{"$set": bson.M{"location": p}})
}

func findOne(ctx context.Context, coll *mongo.Collection, filter bson.M, out any) error {
	err := coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func findOneByEmail(ctx context.Context, coll *mongo.Collection, email string, out any) error {
	opts := options.FindOne().SetCollation(&options.Collation{Locale: "en", Strength: 2})
	err := coll.FindOne(ctx, bson.M{"email": email}, opts).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func updateOne(ctx context.Context, coll *mongo.Collection, id types.ID, update bson.M) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func mapMongoInsertErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
