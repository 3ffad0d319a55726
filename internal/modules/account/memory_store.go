// README: In-process account store for MOTO_STORE=memory and service tests.
package account

import (
	"context"
	"strings"
	"sync"

	"moto/internal/types"
)

type MemoryStore struct {
	mu      sync.Mutex
	riders  map[types.ID]*Rider
	drivers map[types.ID]*Driver
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		riders:  make(map[types.ID]*Rider),
		drivers: make(map[types.ID]*Driver),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) CreateRider(_ context.Context, r *Rider) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.riders[r.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.riders {
		if strings.EqualFold(existing.Email, r.Email) {
			return ErrDuplicate
		}
	}
	cp := *r
	m.riders[r.ID] = &cp
	return nil
}

func (m *MemoryStore) CreateDriver(_ context.Context, d *Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drivers[d.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range m.drivers {
		if strings.EqualFold(existing.Email, d.Email) || strings.EqualFold(existing.LicensePlate, d.LicensePlate) {
			return ErrDuplicate
		}
	}
	m.drivers[d.ID] = cloneDriver(d)
	return nil
}

func (m *MemoryStore) GetRider(_ context.Context, id types.ID) (*Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) GetDriver(_ context.Context, id types.ID) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDriver(d), nil
}

func (m *MemoryStore) FindRiderByEmail(_ context.Context, email string) (*Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.riders {
		if strings.EqualFold(r.Email, email) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindDriverByEmail(_ context.Context, email string) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.drivers {
		if strings.EqualFold(d.Email, email) {
			return cloneDriver(d), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ClaimDriver(_ context.Context, driverID, rideID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok || !d.IsVerified || !d.IsAvailable || d.ActiveRideID != nil {
		return false, nil
	}
	id := rideID
	d.IsAvailable = false
	d.ActiveRideID = &id
	return true, nil
}

func (m *MemoryStore) ReleaseDriver(_ context.Context, driverID, rideID types.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok || d.ActiveRideID == nil || *d.ActiveRideID != rideID {
		return false, nil
	}
	d.IsAvailable = true
	d.ActiveRideID = nil
	return true, nil
}

func (m *MemoryStore) RecordDriverTrip(_ context.Context, driverID, rideID types.ID, fare float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok {
		return ErrNotFound
	}
	d.TotalRides++
	d.Earnings = types.RoundCents(d.Earnings + fare)
	if d.ActiveRideID != nil && *d.ActiveRideID == rideID {
		d.IsAvailable = true
		d.ActiveRideID = nil
	}
	return nil
}

func (m *MemoryStore) RecordRiderTrip(_ context.Context, riderID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[riderID]
	if !ok {
		return ErrNotFound
	}
	r.TotalRides++
	return nil
}

func (m *MemoryStore) SetRiderRating(_ context.Context, riderID types.ID, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.riders[riderID]
	if !ok {
		return ErrNotFound
	}
	r.Rating = &rating
	return nil
}

func (m *MemoryStore) SetDriverRating(_ context.Context, driverID types.ID, rating float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok {
		return ErrNotFound
	}
	d.Rating = &rating
	return nil
}

func (m *MemoryStore) SetDriverAvailability(_ context.Context, driverID types.ID, available bool, loc *types.Point) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok || d.ActiveRideID != nil {
		return false, nil
	}
	d.IsAvailable = available
	if loc != nil {
		p := *loc
		d.Location = &p
	}
	return true, nil
}

func (m *MemoryStore) UpdateDriverLocation(_ context.Context, driverID types.ID, p types.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[driverID]
	if !ok {
		return ErrNotFound
	}
	d.Location = &p
	return nil
}

func cloneDriver(d *Driver) *Driver {
	cp := *d
	if d.ActiveRideID != nil {
		id := *d.ActiveRideID
		cp.ActiveRideID = &id
	}
	if d.Location != nil {
		p := *d.Location
		cp.Location = &p
	}
	if d.Rating != nil {
		r := *d.Rating
		cp.Rating = &r
	}
	return &cp
}
