// README: MongoStore tests against a live server (skipped unless MOTO_TEST_MONGO_URI is set).
package ride

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moto/internal/types"
)

func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MOTO_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("MOTO_TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := client.Database("moto_test_" + string(types.NewID())[:8])
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})
	store := NewMongoStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("indexes: %v", err)
	}
	return store
}

func mongoRide(rider types.ID, pickup types.Point, created time.Time) *Ride {
	return &Ride{
		ID:            types.NewID(),
		RiderID:       rider,
		Pickup:        NewLocation(pickup, ""),
		Destination:   NewLocation(types.Point{Lat: 40.72, Lng: -74.02}, ""),
		DistanceKm:    2.79,
		EstimatedFare: 3.4,
		PaymentMethod: PaymentCash,
		PaymentStatus: PaymentPending,
		Status:        StatusRequested,
		CreatedAt:     created.UTC().Truncate(time.Millisecond),
	}
}

func TestMongoStore_ConditionalUpdate(t *testing.T) {
	store := setupMongoStore(t)
	ctx := context.Background()
	r := mongoRide("rider1", types.Point{Lat: 40.7, Lng: -74.0}, time.Now())
	if err := store.Create(ctx, r); err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			driver := types.ID("driver" + string(rune('a'+i)))
			next := r.transition(StatusAccepted, time.Now().UTC())
			next.DriverID = &driver
			ok, err := store.UpdateStatus(ctx, next, StatusRequested, r.StatusVersion)
			if err != nil {
				t.Errorf("update: %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
	got, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusAccepted || got.DriverID == nil || got.StatusVersion != r.StatusVersion+1 {
		t.Fatalf("stored ride = %+v", got)
	}
}

func TestMongoStore_ListAvailableAndRatings(t *testing.T) {
	store := setupMongoStore(t)
	ctx := context.Background()
	now := time.Now()

	near := mongoRide("rider1", types.Point{Lat: 40.7, Lng: -74.0}, now.Add(-time.Minute))
	newer := mongoRide("rider1", types.Point{Lat: 40.701, Lng: -74.001}, now)
	far := mongoRide("rider2", types.Point{Lat: 41.5, Lng: -74.0}, now)
	for _, r := range []*Ride{near, newer, far} {
		if err := store.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	origin := types.Point{Lat: 40.7, Lng: -74.0}
	got, err := store.ListAvailable(ctx, AvailableQuery{Origin: &origin, RadiusKm: 5, Limit: availableLimit})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != near.ID {
		t.Fatalf("available = %v", ids(got))
	}

	driver := types.ID("driver1")
	for i, r := range []*Ride{near, newer} {
		r.DriverID = &driver
		done := r.transition(StatusCompleted, now)
		done.DriverID = &driver
		if ok, err := store.UpdateStatus(ctx, done, StatusRequested, r.StatusVersion); err != nil || !ok {
			t.Fatalf("complete %d: ok=%v err=%v", i, ok, err)
		}
	}
	for r, rating := range map[*Ride]float64{near: 5, newer: 4} {
		if ok, err := store.SetRating(ctx, r.ID, SideDriver, rating); err != nil || !ok {
			t.Fatalf("set rating: ok=%v err=%v", ok, err)
		}
	}
	if ok, _ := store.SetRating(ctx, far.ID, SideDriver, 3); ok {
		t.Fatal("rated a ride that is not completed")
	}

	avg, n, err := store.AverageRating(ctx, SideDriver, driver)
	if err != nil {
		t.Fatalf("average: %v", err)
	}
	if n != 2 || avg != 4.5 {
		t.Fatalf("average = %v over %d", avg, n)
	}

	history, err := store.ListByDriver(ctx, driver, historyLimit)
	if err != nil || len(history) != 2 {
		t.Fatalf("driver history = %d rides, err %v", len(history), err)
	}
}
