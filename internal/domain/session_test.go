package domain

import (
	"errors"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("s1")
	if s.State() != StateConnected {
		t.Fatalf("new session state = %v, want connected", s.State())
	}

	if _, ok := s.Leave(); ok {
		t.Fatal("leave without join should report ok=false")
	}

	prev, err := s.Join("abc123")
	if err != nil || prev != "" {
		t.Fatalf("Join = (%q, %v), want (\"\", nil)", prev, err)
	}
	if s.State() != StateJoined || s.CurrentRoom() != "abc123" {
		t.Fatalf("after join: state=%v room=%q", s.State(), s.CurrentRoom())
	}

	prev, err = s.Join("other")
	if err != nil || prev != "abc123" {
		t.Fatalf("second Join = (%q, %v), want (\"abc123\", nil)", prev, err)
	}

	room, ok := s.Leave()
	if !ok || room != "other" {
		t.Fatalf("Leave = (%q, %v)", room, ok)
	}
	if s.State() != StateConnected || s.CurrentRoom() != "" {
		t.Fatalf("after leave: state=%v room=%q", s.State(), s.CurrentRoom())
	}
}

func TestSessionCloseOnce(t *testing.T) {
	s := NewSession("s1")
	if _, err := s.Join("abc123"); err != nil {
		t.Fatal(err)
	}

	room, first := s.Close()
	if !first || room != "abc123" {
		t.Fatalf("first Close = (%q, %v)", room, first)
	}
	room, first = s.Close()
	if first || room != "" {
		t.Fatalf("second Close = (%q, %v), want (\"\", false)", room, first)
	}

	if _, err := s.Join("abc123"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Join after close err = %v, want ErrSessionClosed", err)
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %v, want closed", s.State())
	}
}

func TestSessionCloseWithoutRoom(t *testing.T) {
	s := NewSession("s1")
	room, first := s.Close()
	if !first || room != "" {
		t.Fatalf("Close = (%q, %v), want (\"\", true)", room, first)
	}
}

func TestSessionTouchAdvancesActivity(t *testing.T) {
	s := NewSession("s1")
	if !s.LastActiveAt().Equal(s.ConnectedAt) {
		t.Fatalf("new session: lastActiveAt=%v connectedAt=%v", s.LastActiveAt(), s.ConnectedAt)
	}

	time.Sleep(5 * time.Millisecond)
	s.Touch()
	if !s.LastActiveAt().After(s.ConnectedAt) {
		t.Fatal("Touch did not advance lastActiveAt")
	}
}
