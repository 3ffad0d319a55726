// README: Ride store backed by MongoDB; pickup points are GeoJSON for geo queries.
package ride

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
	ridesCollection = "rides"
	earthRadiusKm   = 6371.0
)

type MongoStore struct {
	rides *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{rides: db.Collection(ridesCollection)}
}

var _ Store = (*MongoStore)(nil)

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.rides.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pickup_location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "rider_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("rides indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, r *Ride) error {
	if _, err := s.rides.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id types.ID) (*Ride, error) {
	var r Ride
	err := s.rides.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, next *Ride, from Status, version int) (bool, error) {
	res, err := s.rides.UpdateOne(ctx,
		bson.M{"_id": next.ID, "status": from, "status_version": version},
		bson.M{"$set": bson.M{
			"status":         next.Status,
			"status_version": next.StatusVersion,
			"driver_id":      next.DriverID,
			"actual_fare":    next.ActualFare,
			"payment_status": next.PaymentStatus,
			"accepted_at":    next.AcceptedAt,
			"started_at":     next.StartedAt,
			"completed_at":   next.CompletedAt,
			"cancelled_at":   next.CancelledAt,
			"cancelled_by":   next.CancelledBy,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("update ride status: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) ListAvailable(ctx context.Context, q AvailableQuery) ([]*Ride, error) {
	filter := bson.M{"status": StatusRequested, "driver_id": nil}
	if q.Origin != nil {
		filter["pickup_location"] = bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{
				bson.A{q.Origin.Lng, q.Origin.Lat},
				q.RadiusKm / earthRadiusKm,
			},
		}}
	}
	return s.find(ctx, filter, q.Limit)
}

func (s *MongoStore) ListByRider(ctx context.Context, riderID types.ID, limit int) ([]*Ride, error) {
	return s.find(ctx, bson.M{"rider_id": riderID}, limit)
}

func (s *MongoStore) ListByDriver(ctx context.Context, driverID types.ID, limit int) ([]*Ride, error) {
	return s.find(ctx, bson.M{"driver_id": driverID}, limit)
}

func (s *MongoStore) SetRating(ctx context.Context, id types.ID, side Side, rating float64) (bool, error) {
	res, err := s.rides.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusCompleted},
		bson.M{"$set": bson.M{ratingColumn(side): rating}},
	)
	if err != nil {
		return false, fmt.Errorf("set ride rating: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *MongoStore) AverageRating(ctx context.Context, side Side, participantID types.ID) (float64, int, error) {
	field := ratingColumn(side)
	owner := "rider_id"
	if side == SideDriver {
		owner = "driver_id"
	}
	cur, err := s.rides.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{owner: participantID, "status": StatusCompleted, field: bson.M{"$ne": nil}}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "avg": bson.M{"$avg": "$" + field}, "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	defer cur.Close(ctx)
	var out []struct {
		Avg float64 `bson:"avg"`
		N   int     `bson:"n"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	if len(out) == 0 {
		return 0, 0, nil
	}
	return out[0].Avg, out[0].N, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, limit int) ([]*Ride, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.rides.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find rides: %w", err)
	}
	defer cur.Close(ctx)
	var out []*Ride
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode rides: %w", err)
	}
	return out, nil
}
