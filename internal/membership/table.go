package membership

import (
	"sync"
)

// Member is a connection that can sit in a room.
type Member interface {
	ID() string
	// Send queues a message for delivery and reports whether it was accepted.
	Send(msg []byte) bool
}

// Change describes a room right after a membership mutation, observed while
// the room is still locked.
type Change struct {
	RoomID  string
	Size    int
	Changed bool
	// Members is a snapshot of the room after the mutation.
	Members []Member
}

// SettleFunc runs under the room lock after a mutation.
type SettleFunc func(Change)

type room struct {
	mu      sync.Mutex
	members map[string]Member
	pruned  bool
}

// Table maps room ids to their live members. Mutations on one room are
// serialized; different rooms never contend beyond the table map lookup.
type Table struct {
	mu    sync.Mutex
	rooms map[string]*room
}

func NewTable() *Table {
	return &Table{rooms: make(map[string]*room)}
}

// lockRoom returns the room locked, creating it when create is set.
// Returns nil when the room does not exist and create is false.
func (t *Table) lockRoom(roomID string, create bool) *room {
	for {
		t.mu.Lock()
		r, ok := t.rooms[roomID]
		if !ok {
			if !create {
				t.mu.Unlock()
				return nil
			}
			r = &room{members: make(map[string]Member)}
			t.rooms[roomID] = r
		}
		t.mu.Unlock()

		r.mu.Lock()
		if !r.pruned {
			return r
		}
		// Pruned between lookup and lock; a fresh entry may exist now.
		r.mu.Unlock()
	}
}

// Join adds m to roomID. Adding a member twice is a no-op.
func (t *Table) Join(roomID string, m Member, settle SettleFunc) {
	r := t.lockRoom(roomID, true)
	defer r.mu.Unlock()

	_, exists := r.members[m.ID()]
	if !exists {
		r.members[m.ID()] = m
	}
	if settle != nil {
		settle(r.change(roomID, !exists))
	}
}

// Leave removes m from roomID and prunes the room when it empties.
// It reports whether m was a member.
func (t *Table) Leave(roomID string, m Member, settle SettleFunc) bool {
	r := t.lockRoom(roomID, false)
	if r == nil {
		if settle != nil {
			settle(Change{RoomID: roomID})
		}
		return false
	}
	defer r.mu.Unlock()

	_, exists := r.members[m.ID()]
	if exists {
		delete(r.members, m.ID())
	}
	if len(r.members) == 0 {
		t.prune(roomID, r)
	}
	if settle != nil {
		settle(r.change(roomID, exists))
	}
	return exists
}

// Inspect runs fn under the room lock without mutating the room.
func (t *Table) Inspect(roomID string, fn SettleFunc) {
	r := t.lockRoom(roomID, false)
	if r == nil {
		fn(Change{RoomID: roomID})
		return
	}
	defer r.mu.Unlock()
	fn(r.change(roomID, false))
}

// prune drops an empty room. Caller holds r.mu.
func (t *Table) prune(roomID string, r *room) {
	t.mu.Lock()
	if t.rooms[roomID] == r {
		delete(t.rooms, roomID)
	}
	t.mu.Unlock()
	r.pruned = true
}

// Size returns the number of members in roomID.
func (t *Table) Size(roomID string) int {
	r := t.lockRoom(roomID, false)
	if r == nil {
		return 0
	}
	defer r.mu.Unlock()
	return len(r.members)
}

// ForEachExcept calls fn for every member of roomID other than exclude.
// fn runs on a snapshot taken under the room lock, outside of it.
func (t *Table) ForEachExcept(roomID string, exclude Member, fn func(Member)) {
	r := t.lockRoom(roomID, false)
	if r == nil {
		return
	}
	snapshot := r.snapshot()
	r.mu.Unlock()

	for _, m := range snapshot {
		if exclude != nil && m.ID() == exclude.ID() {
			continue
		}
		fn(m)
	}
}

// Rooms returns the number of non-empty rooms.
func (t *Table) Rooms() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rooms)
}

func (r *room) snapshot() []Member {
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	return out
}

func (r *room) change(roomID string, changed bool) Change {
	return Change{
		RoomID:  roomID,
		Size:    len(r.members),
		Changed: changed,
		Members: r.snapshot(),
	}
}
