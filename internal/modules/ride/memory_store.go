// README: In-process ride store for MOTO_STORE=memory and service tests.
package ride

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"moto/internal/modules/location"
	"moto/internal/types"
)

type memoryRecord struct {
	ride *Ride
	seq  int
}

type MemoryStore struct {
	mu    sync.Mutex
	rides map[types.ID]*memoryRecord
	seq   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[types.ID]*memoryRecord)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(_ context.Context, r *Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[r.ID]; ok {
		return fmt.Errorf("ride %s already exists", r.ID)
	}
	m.seq++
	m.rides[r.ID] = &memoryRecord{ride: r.clone(), seq: m.seq}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id types.ID) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.ride.clone(), nil
}

func (m *MemoryStore) UpdateStatus(_ context.Context, next *Ride, from Status, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rides[next.ID]
	if !ok || rec.ride.Status != from || rec.ride.StatusVersion != version {
		return false, nil
	}
	rec.ride = next.clone()
	return true, nil
}

func (m *MemoryStore) ListAvailable(_ context.Context, q AvailableQuery) ([]*Ride, error) {
	return m.list(q.Limit, func(r *Ride) bool {
		if r.Status != StatusRequested || r.DriverID != nil {
			return false
		}
		if q.Origin == nil {
			return true
		}
		p, ok := r.Pickup.Point()
		return ok && location.HaversineKm(*q.Origin, p) <= q.RadiusKm
	}), nil
}

func (m *MemoryStore) ListByRider(_ context.Context, riderID types.ID, limit int) ([]*Ride, error) {
	return m.list(limit, func(r *Ride) bool { return r.RiderID == riderID }), nil
}

func (m *MemoryStore) ListByDriver(_ context.Context, driverID types.ID, limit int) ([]*Ride, error) {
	return m.list(limit, func(r *Ride) bool { return r.HasDriver(driverID) }), nil
}

func (m *MemoryStore) SetRating(_ context.Context, id types.ID, side Side, rating float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rides[id]
	if !ok || rec.ride.Status != StatusCompleted {
		return false, nil
	}
	v := rating
	if side == SideDriver {
		rec.ride.DriverRating = &v
	} else {
		rec.ride.RiderRating = &v
	}
	return true, nil
}

func (m *MemoryStore) AverageRating(_ context.Context, side Side, participantID types.ID) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	var n int
	for _, rec := range m.rides {
		r := rec.ride
		if r.Status != StatusCompleted {
			continue
		}
		var v *float64
		switch {
		case side == SideDriver && r.HasDriver(participantID):
			v = r.DriverRating
		case side == SideRider && r.RiderID == participantID:
			v = r.RiderRating
		}
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return sum / float64(n), n, nil
}

// list returns matching rides newest first.
func (m *MemoryStore) list(limit int, match func(*Ride) bool) []*Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]*memoryRecord, 0)
	for _, rec := range m.rides {
		if match(rec.ride) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if !a.ride.CreatedAt.Equal(b.ride.CreatedAt) {
			return a.ride.CreatedAt.After(b.ride.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	out := make([]*Ride, len(recs))
	for i, rec := range recs {
		out[i] = rec.ride.clone()
	}
	return out
}
