// README: In-process geo index; linear haversine scan.
package location

import (
	"context"
	"sync"

	"moto/internal/types"
)

type MemoryStore struct {
	mu        sync.RWMutex
	positions map[types.ID]types.Point
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{positions: make(map[types.ID]types.Point)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) SetDriver(_ context.Context, id types.ID, p types.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[id] = p
	return nil
}

func (m *MemoryStore) RemoveDriver(_ context.Context, id types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, id)
	return nil
}

func (m *MemoryStore) Nearby(_ context.Context, p types.Point, radiusKm float64, limit int) ([]NearbyDriver, error) {
	m.mu.RLock()
	var out []NearbyDriver
	for id, pos := range m.positions {
		if d := HaversineKm(p, pos); d <= radiusKm {
			out = append(out, NearbyDriver{DriverID: id, Position: pos, DistanceKm: d})
		}
	}
	m.mu.RUnlock()

	SortByDistance(out, func(n NearbyDriver) float64 { return n.DistanceKm })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
