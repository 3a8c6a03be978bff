package pubsub

import (
	"context"
	"testing"
)

func TestChannelToTopicAndKey(t *testing.T) {
	tests := []struct {
		channel string
		topic   string
		key     string
		wantErr bool
	}{
		{channel: RoomEventsChannel("abc123"), topic: "relay-events", key: "abc123"},
		{channel: RoomEventsChannel("studio:a:b"), topic: "relay-events", key: "studio:a:b"},
		{channel: "relay:room:abc123:", wantErr: true},
		{channel: "relay:room::events", wantErr: true},
		{channel: "relay:abc123:events", wantErr: true},
		{channel: "garbage", wantErr: true},
	}

	for _, tt := range tests {
		topic, key, err := channelToTopicAndKey(tt.channel)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tt.channel)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.channel, err)
		}
		if topic != tt.topic || key != tt.key {
			t.Errorf("%q: got (%q, %q), want (%q, %q)", tt.channel, topic, key, tt.topic, tt.key)
		}
	}
}

func TestNewEventRoundTripsPayload(t *testing.T) {
	ev, err := NewEvent(EventBroadcastCreated, "abc123", &BroadcastPayload{
		BroadcastID: "b1",
		RoomID:      "abc123",
		IsActive:    true,
	})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}

	var got BroadcastPayload
	if err := ev.UnmarshalPayload(&got); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if got.BroadcastID != "b1" || !got.IsActive || ev.RoomID != "abc123" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestNewPublisherNone(t *testing.T) {
	p, err := NewPublisher(Config{Driver: "none"})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	if err := p.Publish(context.Background(), RoomEventsChannel("r"), &Event{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := NewPublisher(Config{Driver: "nats"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
