package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types from client.
const (
	MsgTypeJoinRoom     = "join-room"
	MsgTypeLeaveRoom    = "leave-room"
	MsgTypeOffer        = "offer"
	MsgTypeAnswer       = "answer"
	MsgTypeICECandidate = "ice-candidate"
	MsgTypePing         = "ping"
)

// Message types to client.
const (
	MsgTypeConnected  = "connected"
	MsgTypeRoomUpdate = "room-update"
	MsgTypePong       = "pong"
)

// Kind groups inbound message types by how the relay handles them.
type Kind int

const (
	KindJoin Kind = iota + 1
	KindLeave
	KindSignal
	KindPing
)

func (k Kind) String() string {
	switch k {
	case KindJoin:
		return "join"
	case KindLeave:
		return "leave"
	case KindSignal:
		return "signal"
	case KindPing:
		return "ping"
	}
	return "unknown"
}

// Protocol anomalies. Messages failing with one of these are dropped.
var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
	ErrMissingRoomID    = errors.New("roomId required")
)

// Inbound is a parsed client message. Raw keeps the exact bytes received so
// signaling messages can be forwarded without re-encoding; Data is never
// decoded by the relay.
type Inbound struct {
	Kind      Kind
	Type      string
	RoomID    string
	SessionID string
	Raw       []byte
}

// envelope deliberately has no data field: the payload is skipped, not decoded.
type envelope struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId"`
}

// ParseInbound classifies a raw client frame.
func ParseInbound(raw []byte) (*Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	in := &Inbound{
		Type:      env.Type,
		RoomID:    env.RoomID,
		SessionID: env.SessionID,
		Raw:       raw,
	}

	switch env.Type {
	case MsgTypeJoinRoom:
		if env.RoomID == "" {
			return nil, ErrMissingRoomID
		}
		in.Kind = KindJoin
	case MsgTypeLeaveRoom:
		in.Kind = KindLeave
	case MsgTypeOffer, MsgTypeAnswer, MsgTypeICECandidate:
		in.Kind = KindSignal
	case MsgTypePing:
		in.Kind = KindPing
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
	return in, nil
}

// ConnectedMessage greets a new connection with its session id.
type ConnectedMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// RoomUpdateMessage announces the room's membership size and broadcast state.
type RoomUpdateMessage struct {
	Type          string `json:"type"`
	RoomID        string `json:"roomId"`
	ListenerCount int    `json:"listenerCount"`
	IsActive      bool   `json:"isActive"`
}

// PongMessage answers an application-level ping.
type PongMessage struct {
	Type string `json:"type"`
}

// NewRoomUpdate builds a room-update message.
func NewRoomUpdate(roomID string, count int, active bool) *RoomUpdateMessage {
	return &RoomUpdateMessage{
		Type:          MsgTypeRoomUpdate,
		RoomID:        roomID,
		ListenerCount: count,
		IsActive:      active,
	}
}
