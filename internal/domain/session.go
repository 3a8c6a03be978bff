package domain

import (
	"errors"
	"sync"
	"time"
)

// SessionState is the lifecycle position of a connection.
type SessionState int

const (
	StateConnected SessionState = iota
	StateJoined
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ErrSessionClosed is returned when a closed session is asked to join a room.
var ErrSessionClosed = errors.New("session closed")

// Session is the relay's per-connection state. A session is in at most one room.
type Session struct {
	ID          string
	ConnectedAt time.Time

	mu           sync.RWMutex
	state        SessionState
	roomID       string
	lastActiveAt time.Time
}

// NewSession creates a session in the Connected state.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		ConnectedAt:  now,
		state:        StateConnected,
		lastActiveAt: now,
	}
}

// Join moves the session into roomID and returns the room it was in before
// ("" if none). The caller is responsible for releasing that membership.
func (s *Session) Join(roomID string) (previous string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return "", ErrSessionClosed
	}
	previous = s.roomID
	s.roomID = roomID
	s.state = StateJoined
	s.lastActiveAt = time.Now()
	return previous, nil
}

// Leave returns the session to Connected and reports the room it left.
func (s *Session) Leave() (roomID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateJoined {
		return "", false
	}
	roomID = s.roomID
	s.roomID = ""
	s.state = StateConnected
	s.lastActiveAt = time.Now()
	return roomID, true
}

// Close moves the session to Closed. It reports the room held at close time
// and whether this call performed the transition; only the first call does.
func (s *Session) Close() (roomID string, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return "", false
	}
	roomID = s.roomID
	s.roomID = ""
	s.state = StateClosed
	return roomID, true
}

// CurrentRoom returns the joined room id, or "".
func (s *Session) CurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// State returns the lifecycle state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Touch records inbound activity.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

// LastActiveAt returns when the session last received a message.
func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}
