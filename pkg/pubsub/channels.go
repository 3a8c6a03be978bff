package pubsub

import (
	"fmt"
	"strings"
)

// ChannelRoomEvents carries broadcast lifecycle events for one room.
const ChannelRoomEvents = "relay:room:%s:events"

// Event types published by the relay.
const (
	EventBroadcastCreated     = "broadcast_created"
	EventBroadcastStopped     = "broadcast_stopped"
	EventListenerCountChanged = "listener_count_changed"
)

// RoomEventsChannel returns the channel name for a room's lifecycle events.
func RoomEventsChannel(roomID string) string {
	return fmt.Sprintf(ChannelRoomEvents, roomID)
}

// channelToTopicAndKey converts a Redis-style channel to a Kafka topic and message key.
// The room id is everything between "room:" and the last segment, so it may
// itself contain colons.
//
//	"relay:room:abc123:events" → topic: "relay-events", key: "abc123"
func channelToTopicAndKey(channel string) (topic, key string, err error) {
	parts := strings.SplitN(channel, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] != "room" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	sep := strings.LastIndex(parts[2], ":")
	if sep <= 0 || sep == len(parts[2])-1 {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	key, event := parts[2][:sep], parts[2][sep+1:]
	return parts[0] + "-" + strings.ReplaceAll(event, "_", "-"), key, nil
}

// BroadcastPayload describes a broadcast at the time of the event.
type BroadcastPayload struct {
	BroadcastID   string `json:"broadcast_id"`
	RoomID        string `json:"room_id"`
	Title         string `json:"title,omitempty"`
	AudioQuality  string `json:"audio_quality,omitempty"`
	IsActive      bool   `json:"is_active"`
	ListenerCount int    `json:"listener_count"`
}
