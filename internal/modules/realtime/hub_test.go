package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"moto/internal/logging"
	"moto/internal/types"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(logging.Discard())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, types.RiderPrincipal("r1")); err != nil {
			t.Errorf("serve: %v", err)
		}
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub, url string, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() < want {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", hub.Len(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return ev
}

func TestHub_PublishReachesClients(t *testing.T) {
	hub, url := startHub(t)
	a := dial(t, hub, url, 1)
	b := dial(t, hub, url, 2)

	ev, err := NewEvent(EventRideStatus, map[string]string{"ride_id": "abc", "status": "accepted"})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if err := hub.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		got := readEvent(t, conn)
		if got.Type != EventRideStatus {
			t.Errorf("type = %q", got.Type)
		}
		var payload map[string]string
		if err := json.Unmarshal(got.Payload, &payload); err != nil || payload["status"] != "accepted" {
			t.Errorf("payload = %s", got.Payload)
		}
	}
}

func TestHub_RelaysKnownClientFrames(t *testing.T) {
	hub, url := startHub(t)
	sender := dial(t, hub, url, 1)
	receiver := dial(t, hub, url, 2)

	frames := []string{
		`{"type":"chat.message","payload":{"text":"ignored"}}`,
		`not json`,
		`{"type":"driver.location","payload":{"lat":40.7,"lng":-74.0}}`,
	}
	for _, f := range frames {
		if err := sender.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got := readEvent(t, receiver)
	if got.Type != EventDriverLocation {
		t.Fatalf("type = %q, want %q", got.Type, EventDriverLocation)
	}

	// the sender does not get its own frame back
	_ = sender.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := sender.ReadMessage()
	var netErr interface{ Timeout() bool }
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("sender read: got %v, want timeout", err)
	}
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client still registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("broker down")}
	m := Multi{bad, ok}

	ev, _ := NewEvent(EventRideRequested, map[string]int{"n": 1})
	err := m.Publish(context.Background(), ev)
	if err == nil || !strings.Contains(err.Error(), "broker down") {
		t.Fatalf("err = %v", err)
	}
	if len(ok.events) != 1 {
		t.Fatalf("healthy publisher skipped after failure")
	}
}

func TestNotify_SwallowsErrors(t *testing.T) {
	bad := &recordingPublisher{err: errors.New("boom")}
	Notify(context.Background(), bad, logging.Discard(), EventRideStatus, map[string]string{"status": "cancelled"})
	Notify(context.Background(), nil, logging.Discard(), EventRideStatus, nil)
	if len(bad.events) != 1 {
		t.Fatalf("events = %d", len(bad.events))
	}
}

func TestEventType_Known(t *testing.T) {
	for _, et := range []EventType{EventDriverLocation, EventRideRequested, EventRideStatus} {
		if !et.Known() {
			t.Errorf("%q should be known", et)
		}
	}
	if EventType("chat.message").Known() {
		t.Error("unexpected known type")
	}
}
