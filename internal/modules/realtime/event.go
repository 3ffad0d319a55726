// README: Real-time event model and the best-effort Publisher contract.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

type EventType string

const (
	EventDriverLocation EventType = "driver.location"
	EventRideRequested  EventType = "ride.requested"
	EventRideStatus     EventType = "ride.status"
)

func (t EventType) Known() bool {
	switch t {
	case EventDriverLocation, EventRideRequested, EventRideStatus:
		return true
	}
	return false
}

type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// NewEvent marshals payload into an event stamped with the current time.
func NewEvent(t EventType, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Payload: raw, At: time.Now().UTC()}, nil
}

// Publisher delivers events at most once. Callers never fail a request on a
// publish error.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Notify builds and publishes an event, logging instead of returning errors.
func Notify(ctx context.Context, pub Publisher, log *slog.Logger, t EventType, payload any) {
	if pub == nil {
		return
	}
	ev, err := NewEvent(t, payload)
	if err == nil {
		err = pub.Publish(ctx, ev)
	}
	if err != nil && log != nil {
		log.Warn("event dropped", "type", string(t), "err", err)
	}
}
