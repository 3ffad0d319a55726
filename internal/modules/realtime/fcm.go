// README: Firebase Cloud Messaging publisher; pushes ride events to per-type topics.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"firebase.google.com/go/v4/messaging"
)

const DefaultTopicPrefix = "moto"

// Sender is the slice of *messaging.Client the publisher uses.
type Sender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// FCMPublisher forwards ride events to mobile clients subscribed to
// "<prefix>-<event type>" topics. Driver location pings stay on the
// websocket and broker paths.
type FCMPublisher struct {
	sender Sender
	prefix string
}

func NewFCMPublisher(sender Sender, prefix string) *FCMPublisher {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &FCMPublisher{sender: sender, prefix: prefix}
}

var _ Publisher = (*FCMPublisher)(nil)

// Topic returns the FCM topic an event type is pushed to.
func (p *FCMPublisher) Topic(t EventType) string {
	return p.prefix + "-" + strings.ReplaceAll(string(t), ".", "-")
}

func (p *FCMPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Type == EventDriverLocation {
		return nil
	}
	var ride struct {
		ID            string  `json:"id"`
		Status        string  `json:"status"`
		EstimatedFare float64 `json:"estimated_fare"`
	}
	if err := json.Unmarshal(ev.Payload, &ride); err != nil {
		return fmt.Errorf("decode %s payload: %w", ev.Type, err)
	}

	msg := &messaging.Message{
		Topic: p.Topic(ev.Type),
		Data: map[string]string{
			"type":    string(ev.Type),
			"ride_id": ride.ID,
			"status":  ride.Status,
			"payload": string(ev.Payload),
			"at":      ev.At.Format(time.RFC3339Nano),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}
	if ev.Type == EventRideRequested {
		msg.Data["estimated_fare"] = strconv.FormatFloat(ride.EstimatedFare, 'f', 2, 64)
		msg.Notification = &messaging.Notification{
			Title: "New ride request",
			Body:  fmt.Sprintf("Pickup nearby, estimated fare $%.2f", ride.EstimatedFare),
		}
	}
	if _, err := p.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send to %s: %w", msg.Topic, err)
	}
	return nil
}
