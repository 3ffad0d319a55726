// README: Geo index kept in Firebase Realtime Database; radius filtering happens in process.
package location

import (
	"context"
	"fmt"
	"time"

	"firebase.google.com/go/v4/db"

	"moto/internal/types"
)

const (
	driverLocationsPath = "driver_locations"
	statusOnline        = "online"
)

// rtdbDriverEntry is the value stored under driver_locations/<driver id>.
// Mobile clients may listen on the same node.
type rtdbDriverEntry struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Status    string  `json:"status"`
	Timestamp int64   `json:"timestamp"`
}

type FirebaseStore struct {
	client *db.Client
	path   string
	now    func() time.Time
}

func NewFirebaseStore(client *db.Client) *FirebaseStore {
	return &FirebaseStore{client: client, path: driverLocationsPath, now: time.Now}
}

var _ Store = (*FirebaseStore)(nil)

func (s *FirebaseStore) SetDriver(ctx context.Context, id types.ID, p types.Point) error {
	entry := rtdbDriverEntry{Lat: p.Lat, Lng: p.Lng, Status: statusOnline, Timestamp: s.now().UnixMilli()}
	if err := s.client.NewRef(s.path).Child(string(id)).Set(ctx, entry); err != nil {
		return fmt.Errorf("set driver location: %w", err)
	}
	return nil
}

func (s *FirebaseStore) RemoveDriver(ctx context.Context, id types.ID) error {
	if err := s.client.NewRef(s.path).Child(string(id)).Delete(ctx); err != nil {
		return fmt.Errorf("remove driver location: %w", err)
	}
	return nil
}

// Nearby fetches online drivers with an ordered status query and keeps those
// within radiusKm. The status child needs an ".indexOn" rule in the database.
func (s *FirebaseStore) Nearby(ctx context.Context, p types.Point, radiusKm float64, limit int) ([]NearbyDriver, error) {
	var data map[string]rtdbDriverEntry
	if err := s.client.NewRef(s.path).OrderByChild("status").EqualTo(statusOnline).Get(ctx, &data); err != nil {
		return nil, fmt.Errorf("query online drivers: %w", err)
	}
	return nearbyEntries(data, p, radiusKm, limit), nil
}

func nearbyEntries(data map[string]rtdbDriverEntry, p types.Point, radiusKm float64, limit int) []NearbyDriver {
	var out []NearbyDriver
	for id, entry := range data {
		if entry.Status != statusOnline {
			continue
		}
		pos := types.Point{Lat: entry.Lat, Lng: entry.Lng}
		if d := HaversineKm(p, pos); d <= radiusKm {
			out = append(out, NearbyDriver{DriverID: types.ID(id), Position: pos, DistanceKm: d})
		}
	}
	SortByDistance(out, func(n NearbyDriver) float64 { return n.DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
