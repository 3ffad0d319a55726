// README: Ride lifecycle tests against the in-memory stores.
package ride

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"moto/internal/apperr"
	"moto/internal/logging"
	"moto/internal/modules/account"
	"moto/internal/modules/pricing"
	"moto/internal/modules/realtime"
	"moto/internal/types"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (c *capturePublisher) Publish(_ context.Context, ev realtime.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturePublisher) count(t realtime.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

type fixture struct {
	svc      *Service
	store    *MemoryStore
	accounts *account.Service
	pub      *capturePublisher
	rider    types.Principal
	drivers  []types.Principal
}

func newFixture(t *testing.T, drivers int) *fixture {
	t.Helper()
	return newFixtureWith(t, drivers, func(a *account.Service) Accounts { return a })
}

func newFixtureWith(t *testing.T, drivers int, wrap func(*account.Service) Accounts) *fixture {
	t.Helper()
	ctx := context.Background()
	accounts := account.NewService(account.NewMemoryStore(), true)
	store := NewMemoryStore()
	pub := &capturePublisher{}
	f := &fixture{
		svc:      NewService(store, wrap(accounts), pricing.NewService(pricing.DefaultRate(pricing.DefaultBaseFare)), pub, logging.Discard()),
		store:    store,
		accounts: accounts,
		pub:      pub,
	}

	r, err := accounts.RegisterRider(ctx, account.RegisterRiderCommand{
		Name: "Rita", Email: "rita@example.com", Phone: "555-0100", PasswordHash: "h",
	})
	if err != nil {
		t.Fatalf("register rider: %v", err)
	}
	f.rider = types.RiderPrincipal(r.ID)

	for i := 0; i < drivers; i++ {
		d, err := accounts.RegisterDriver(ctx, account.RegisterDriverCommand{
			Name: fmt.Sprintf("Driver %d", i), Email: fmt.Sprintf("d%d@example.com", i), Phone: "555",
			PasswordHash: "h", BikeModel: "Wave", LicensePlate: fmt.Sprintf("PL-%d", i), LicenseNumber: "LN",
		})
		if err != nil {
			t.Fatalf("register driver: %v", err)
		}
		if _, err := accounts.SetAvailability(ctx, d.ID, true, nil); err != nil {
			t.Fatalf("driver online: %v", err)
		}
		f.drivers = append(f.drivers, types.DriverPrincipal(d.ID))
	}
	return f
}

var (
	examplePickup = Location{Type: "Point", Coordinates: []float64{-74.0, 40.7}, Address: "Pier 11"}
	exampleDest   = Location{Type: "Point", Coordinates: []float64{-74.02, 40.72}}
)

func (f *fixture) request(t *testing.T) *Ride {
	t.Helper()
	r, err := f.svc.Create(context.Background(), CreateCommand{
		RiderID: f.rider.ID, Pickup: examplePickup, Destination: exampleDest,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return r
}

// inProgress creates a ride and drives it to in-progress with driver i.
func (f *fixture) inProgress(t *testing.T, i int) *Ride {
	t.Helper()
	ctx := context.Background()
	r := f.request(t)
	if _, err := f.svc.Accept(ctx, r.ID, f.drivers[i].ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	r, err := f.svc.Start(ctx, r.ID, f.drivers[i].ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return r
}

func (f *fixture) completed(t *testing.T, i int) *Ride {
	t.Helper()
	r := f.inProgress(t, i)
	r, err := f.svc.Complete(context.Background(), CompleteCommand{RideID: r.ID, DriverID: f.drivers[i].ID})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	return r
}

func (f *fixture) driver(t *testing.T, i int) *account.Driver {
	t.Helper()
	d, err := f.accounts.GetDriver(context.Background(), f.drivers[i].ID)
	if err != nil {
		t.Fatalf("get driver: %v", err)
	}
	return d
}

func TestCreate(t *testing.T) {
	f := newFixture(t, 0)
	r := f.request(t)

	if r.Status != StatusRequested || r.DriverID != nil {
		t.Fatalf("status=%s driver=%v", r.Status, r.DriverID)
	}
	if math.Abs(r.DistanceKm-2.79) > 0.05 {
		t.Errorf("distance = %v, want ~2.79", r.DistanceKm)
	}
	if r.EstimatedFare < 3.38 || r.EstimatedFare > 3.41 {
		t.Errorf("estimated fare = %v, want ~3.39", r.EstimatedFare)
	}
	if r.PaymentMethod != PaymentCash || r.PaymentStatus != PaymentPending {
		t.Errorf("payment = %s/%s", r.PaymentMethod, r.PaymentStatus)
	}
	if r.Pickup.Address != "Pier 11" || r.Pickup.Type != "Point" {
		t.Errorf("pickup = %+v", r.Pickup)
	}
	if len(r.ID) != 32 {
		t.Errorf("id = %q", r.ID)
	}
	if f.pub.count(realtime.EventRideRequested) != 1 {
		t.Errorf("ride.requested not published")
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	cases := []struct {
		name string
		cmd  CreateCommand
	}{
		{"missing pickup", CreateCommand{Destination: exampleDest}},
		{"missing destination", CreateCommand{Pickup: examplePickup}},
		{"out of range", CreateCommand{Pickup: Location{Coordinates: []float64{-200, 40}}, Destination: exampleDest}},
		{"unknown payment", CreateCommand{Pickup: examplePickup, Destination: exampleDest, PaymentMethod: "bitcoin"}},
	}
	for _, tc := range cases {
		tc.cmd.RiderID = f.rider.ID
		if _, err := f.svc.Create(ctx, tc.cmd); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestEstimate(t *testing.T) {
	f := newFixture(t, 0)
	q, err := f.svc.Estimate(types.Point{Lat: 40.7, Lng: -74.0}, types.Point{Lat: 40.7, Lng: -74.0})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if q.DistanceKm != 0 || q.Fare != 3.0 {
		t.Errorf("quote = %+v", q)
	}
	if _, err := f.svc.Estimate(types.Point{Lat: 91}, types.Point{}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad point: got %v", err)
	}
}

func TestRideFlowHappyPath(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	drv := f.drivers[0]
	r := f.request(t)

	accepted, err := f.svc.Accept(ctx, r.ID, drv.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != StatusAccepted || !accepted.HasDriver(drv.ID) || accepted.AcceptedAt == nil {
		t.Fatalf("accepted = %+v", accepted)
	}
	d := f.driver(t, 0)
	if d.IsAvailable || d.ActiveRideID == nil || *d.ActiveRideID != r.ID {
		t.Fatalf("driver after accept: available=%v active=%v", d.IsAvailable, d.ActiveRideID)
	}

	started, err := f.svc.Start(ctx, r.ID, drv.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != StatusInProgress || started.StartedAt == nil {
		t.Fatalf("started = %+v", started)
	}

	done, err := f.svc.Complete(ctx, CompleteCommand{RideID: r.ID, DriverID: drv.ID})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted || done.PaymentStatus != PaymentCompleted || done.CompletedAt == nil {
		t.Fatalf("completed = %+v", done)
	}
	if done.ActualFare == nil || *done.ActualFare != r.EstimatedFare {
		t.Fatalf("actual fare = %v, want estimated %v", done.ActualFare, r.EstimatedFare)
	}

	d = f.driver(t, 0)
	if d.TotalRides != 1 || d.Earnings != r.EstimatedFare {
		t.Errorf("driver rides=%d earnings=%v", d.TotalRides, d.Earnings)
	}
	if !d.IsAvailable || d.ActiveRideID != nil {
		t.Errorf("driver not released after completion")
	}
	rider, _ := f.accounts.GetRider(ctx, f.rider.ID)
	if rider.TotalRides != 1 {
		t.Errorf("rider rides = %d", rider.TotalRides)
	}

	stored, _ := f.store.Get(ctx, r.ID)
	if stored.Status != StatusCompleted || stored.StatusVersion != 3 {
		t.Errorf("stored status=%s version=%d", stored.Status, stored.StatusVersion)
	}
	if got := f.pub.count(realtime.EventRideStatus); got != 3 {
		t.Errorf("ride.status events = %d, want 3", got)
	}
}

func TestComplete_ActualFare(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	drv := f.drivers[0]

	r := f.inProgress(t, 0)
	for _, bad := range []float64{2.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := f.svc.Complete(ctx, CompleteCommand{RideID: r.ID, DriverID: drv.ID, ActualFare: &bad}); !errors.Is(err, apperr.ErrValidation) {
			t.Fatalf("actual fare %v: got %v", bad, err)
		}
	}
	if d := f.driver(t, 0); d.Earnings != 0 || d.TotalRides != 0 {
		t.Fatalf("rejected fares were booked: earnings=%v rides=%d", d.Earnings, d.TotalRides)
	}

	fare := 12.346
	done, err := f.svc.Complete(ctx, CompleteCommand{RideID: r.ID, DriverID: drv.ID, ActualFare: &fare})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if *done.ActualFare != 12.35 {
		t.Errorf("actual fare = %v", *done.ActualFare)
	}
	if d := f.driver(t, 0); d.Earnings != 12.35 {
		t.Errorf("earnings = %v", d.Earnings)
	}
}

func TestSkippingStatesFails(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	drv := f.drivers[0]
	r := f.request(t)

	if _, err := f.svc.Start(ctx, r.ID, drv.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("start requested ride: got %v", err)
	}
	if _, err := f.svc.Complete(ctx, CompleteCommand{RideID: r.ID, DriverID: drv.ID}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("complete requested ride: got %v", err)
	}

	if _, err := f.svc.Accept(ctx, r.ID, drv.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Complete(ctx, CompleteCommand{RideID: r.ID, DriverID: drv.ID}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("complete accepted ride: got %v", err)
	}
	if _, err := f.svc.Accept(ctx, r.ID, drv.ID); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("re-accept: got %v", err)
	}
}

func TestWrongDriverForbidden(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := f.request(t)
	if _, err := f.svc.Accept(ctx, r.ID, f.drivers[0].ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Start(ctx, r.ID, f.drivers[1].ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("start by other driver: got %v", err)
	}
	if _, err := f.svc.Start(ctx, "missing", f.drivers[0].ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("start missing ride: got %v", err)
	}
}

func TestAccept_Preconditions(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	drv := f.drivers[0]

	if _, err := f.svc.Accept(ctx, "missing", drv.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing ride: got %v", err)
	}

	first, second := f.request(t), f.request(t)
	if _, err := f.svc.Accept(ctx, first.ID, drv.ID); err != nil {
		t.Fatalf("accept first: %v", err)
	}
	if _, err := f.svc.Accept(ctx, second.ID, drv.ID); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("busy driver: got %v", err)
	}
	if _, err := f.svc.Accept(ctx, second.ID, "ghost"); !errors.Is(err, apperr.ErrPrecondition) {
		t.Errorf("unknown driver: got %v", err)
	}
	stored, _ := f.store.Get(ctx, second.ID)
	if stored.Status != StatusRequested || stored.DriverID != nil {
		t.Errorf("rejected accept changed ride: %+v", stored)
	}
}

func TestAccept_UnverifiedDriver(t *testing.T) {
	ctx := context.Background()
	accounts := account.NewService(account.NewMemoryStore(), false)
	svc := NewService(NewMemoryStore(), accounts, pricing.NewService(pricing.DefaultRate(2)), nil, logging.Discard())
	d, err := accounts.RegisterDriver(ctx, account.RegisterDriverCommand{
		Name: "U", Email: "u@example.com", Phone: "1", PasswordHash: "h",
		BikeModel: "b", LicensePlate: "U1", LicenseNumber: "n",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := accounts.SetAvailability(ctx, d.ID, true, nil); err != nil {
		t.Fatalf("online: %v", err)
	}
	r, err := svc.Create(ctx, CreateCommand{RiderID: "r1", Pickup: examplePickup, Destination: exampleDest})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Accept(ctx, r.ID, d.ID); !errors.Is(err, account.ErrNotVerified) {
		t.Fatalf("unverified accept: got %v", err)
	}
}

func TestConcurrentAcceptSameRide(t *testing.T) {
	const attempts = 8
	f := newFixture(t, attempts)
	ctx := context.Background()
	r := f.request(t)

	errs := make(chan error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, drv := range f.drivers {
		wg.Add(1)
		go func(did types.ID) {
			defer wg.Done()
			<-start
			_, err := f.svc.Accept(ctx, r.ID, did)
			errs <- err
		}(drv.ID)
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, apperr.ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 success, got %d", success)
	}

	stored, _ := f.store.Get(ctx, r.ID)
	busy := 0
	for i := range f.drivers {
		d := f.driver(t, i)
		if !d.IsAvailable {
			busy++
			if !stored.HasDriver(d.ID) {
				t.Errorf("driver %s busy but not assigned", d.ID)
			}
		}
	}
	if busy != 1 {
		t.Fatalf("busy drivers = %d, want 1", busy)
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	drv := f.drivers[0]

	t.Run("accepted ride releases driver", func(t *testing.T) {
		r := f.request(t)
		if _, err := f.svc.Accept(ctx, r.ID, drv.ID); err != nil {
			t.Fatalf("accept: %v", err)
		}
		got, err := f.svc.Cancel(ctx, r.ID, f.rider)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != StatusCancelled || got.CancelledBy == nil || *got.CancelledBy != types.RoleRider {
			t.Fatalf("cancelled = %+v", got)
		}
		if d := f.driver(t, 0); !d.IsAvailable || d.ActiveRideID != nil {
			t.Fatalf("driver not released: %+v", d)
		}
		if _, err := f.svc.Cancel(ctx, r.ID, f.rider); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("second cancel: got %v", err)
		}
	})

	t.Run("assigned driver cancels", func(t *testing.T) {
		r := f.inProgress(t, 0)
		got, err := f.svc.Cancel(ctx, r.ID, drv)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if *got.CancelledBy != types.RoleDriver {
			t.Errorf("cancelled by = %s", *got.CancelledBy)
		}
		if d := f.driver(t, 0); !d.IsAvailable {
			t.Errorf("driver not released")
		}
	})

	t.Run("completed ride", func(t *testing.T) {
		r := f.completed(t, 0)
		if _, err := f.svc.Cancel(ctx, r.ID, f.rider); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("cancel completed: got %v", err)
		}
	})

	t.Run("strangers", func(t *testing.T) {
		r := f.request(t)
		if _, err := f.svc.Cancel(ctx, r.ID, types.RiderPrincipal("someone-else")); !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("other rider: got %v", err)
		}
		if _, err := f.svc.Cancel(ctx, r.ID, f.drivers[1]); !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("unassigned driver: got %v", err)
		}
		// a driver principal with the rider's id is still not the rider
		if _, err := f.svc.Cancel(ctx, r.ID, types.DriverPrincipal(f.rider.ID)); !errors.Is(err, apperr.ErrForbidden) {
			t.Errorf("role confusion: got %v", err)
		}
	})
}

type failingAccounts struct {
	*account.Service
	err error
}

func (f failingAccounts) RecordRiderTrip(context.Context, types.ID) error { return f.err }

func (f failingAccounts) ReleaseDriver(context.Context, types.ID, types.ID) error { return f.err }

func TestComplete_PartialUpdate(t *testing.T) {
	boom := errors.New("account store down")
	f := newFixtureWith(t, 1, func(a *account.Service) Accounts { return failingAccounts{Service: a, err: boom} })
	ctx := context.Background()

	r := f.inProgress(t, 0)
	got, err := f.svc.Complete(ctx, CompleteCommand{RideID: r.ID, DriverID: f.drivers[0].ID})
	if !errors.Is(err, ErrPartialUpdate) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want partial update", err)
	}
	var pe *PartialUpdateError
	if !errors.As(err, &pe) || len(pe.Failed) != 1 || pe.Failed[0] != "rider trip" {
		t.Fatalf("partial error = %+v", pe)
	}
	if got == nil || got.Status != StatusCompleted {
		t.Fatalf("ride = %+v", got)
	}
	stored, _ := f.store.Get(ctx, r.ID)
	if stored.Status != StatusCompleted {
		t.Fatalf("stored status = %s", stored.Status)
	}
	if d := f.driver(t, 0); d.TotalRides != 1 {
		t.Errorf("driver trip not recorded")
	}
}

func TestCancel_PartialUpdate(t *testing.T) {
	boom := errors.New("account store down")
	f := newFixtureWith(t, 1, func(a *account.Service) Accounts { return failingAccounts{Service: a, err: boom} })
	ctx := context.Background()

	r := f.request(t)
	if _, err := f.svc.Accept(ctx, r.ID, f.drivers[0].ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	got, err := f.svc.Cancel(ctx, r.ID, f.rider)
	if !errors.Is(err, ErrPartialUpdate) {
		t.Fatalf("err = %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	first := f.request(t)
	second := f.completed(t, 0)
	third := f.request(t)

	rides, err := f.svc.History(ctx, f.rider)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rides) != 3 || rides[0].ID != third.ID || rides[2].ID != first.ID {
		t.Fatalf("rider history order wrong: %v", ids(rides))
	}

	rides, err = f.svc.History(ctx, f.drivers[0])
	if err != nil {
		t.Fatalf("driver history: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != second.ID {
		t.Fatalf("driver history = %v", ids(rides))
	}

	if _, err := f.svc.History(ctx, types.Principal{}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("empty principal: got %v", err)
	}
}

func TestListAvailable(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	near := f.request(t)
	taken := f.request(t)
	if _, err := f.svc.Accept(ctx, taken.ID, f.drivers[0].ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	far, err := f.svc.Create(ctx, CreateCommand{
		RiderID:     f.rider.ID,
		Pickup:      Location{Coordinates: []float64{-118.24, 34.05}},
		Destination: Location{Coordinates: []float64{-118.25, 34.06}},
	})
	if err != nil {
		t.Fatalf("create far: %v", err)
	}

	all, err := f.svc.ListAvailable(ctx, nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != far.ID || all[1].ID != near.ID {
		t.Fatalf("all = %v", ids(all))
	}

	origin := types.Point{Lat: 40.705, Lng: -74.005}
	nearby, err := f.svc.ListAvailable(ctx, &origin, 0)
	if err != nil {
		t.Fatalf("list nearby: %v", err)
	}
	if len(nearby) != 1 || nearby[0].ID != near.ID {
		t.Fatalf("nearby = %v", ids(nearby))
	}

	tight, _ := f.svc.ListAvailable(ctx, &origin, 0.1)
	if len(tight) != 0 {
		t.Fatalf("tight radius = %v", ids(tight))
	}

	if _, err := f.svc.ListAvailable(ctx, &types.Point{Lat: -91}, 5); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("invalid origin: got %v", err)
	}
}

func TestListAvailable_Capped(t *testing.T) {
	f := newFixture(t, 0)
	for i := 0; i < availableLimit+5; i++ {
		f.request(t)
	}
	rides, err := f.svc.ListAvailable(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rides) != availableLimit {
		t.Fatalf("len = %d, want %d", len(rides), availableLimit)
	}
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	r := f.request(t)

	if _, err := f.svc.Get(ctx, r.ID, f.rider); err != nil {
		t.Errorf("owner: %v", err)
	}
	if _, err := f.svc.Get(ctx, r.ID, f.drivers[1]); err != nil {
		t.Errorf("driver browsing open ride: %v", err)
	}
	if _, err := f.svc.Get(ctx, r.ID, types.RiderPrincipal("other")); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other rider: got %v", err)
	}

	if _, err := f.svc.Accept(ctx, r.ID, f.drivers[0].ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Get(ctx, r.ID, f.drivers[0]); err != nil {
		t.Errorf("assigned driver: %v", err)
	}
	if _, err := f.svc.Get(ctx, r.ID, f.drivers[1]); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other driver after accept: got %v", err)
	}
	if _, err := f.svc.Get(ctx, "missing", f.rider); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: got %v", err)
	}
}

func ids(rides []*Ride) []types.ID {
	out := make([]types.ID, len(rides))
	for i, r := range rides {
		out[i] = r.ID
	}
	return out
}
