package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shepherdphiri/z-radio/internal/domain"
)

// MemoryStore is the in-process registry. Records are never removed.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Broadcast
	active map[string]string // roomID -> id of the active broadcast
	latest map[string]string // roomID -> id of the most recently created broadcast

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*domain.Broadcast),
		active: make(map[string]string),
		latest: make(map[string]string),
		now:    time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, roomID, title string, quality domain.AudioQuality) (*domain.Broadcast, error) {
	if roomID == "" {
		return nil, ErrEmptyRoomID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.active[roomID]; taken {
		return nil, ErrDuplicateRoom
	}

	b := &domain.Broadcast{
		ID:            uuid.New().String(),
		RoomID:        roomID,
		Title:         title,
		IsActive:      true,
		ListenerCount: 0,
		AudioQuality:  quality,
		CreatedAt:     s.now().UTC(),
	}
	s.byID[b.ID] = b
	s.active[roomID] = b.ID
	s.latest[roomID] = b.ID

	cp := *b
	return &cp, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Broadcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.byID[id]
	if !ok {
		return nil, ErrBroadcastNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) GetByRoomID(ctx context.Context, roomID string) (*domain.Broadcast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[roomID]
	if !ok {
		id, ok = s.latest[roomID]
	}
	if !ok {
		return nil, ErrBroadcastNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch domain.BroadcastPatch) (*domain.Broadcast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.byID[id]
	if !ok {
		return nil, ErrBroadcastNotFound
	}

	if patch.IsActive != nil && *patch.IsActive && !b.IsActive {
		if holder, taken := s.active[b.RoomID]; taken && holder != id {
			return nil, ErrDuplicateRoom
		}
	}

	patch.Apply(b)
	if b.IsActive {
		s.active[b.RoomID] = id
	} else if s.active[b.RoomID] == id {
		delete(s.active, b.RoomID)
	}

	cp := *b
	return &cp, nil
}

func (s *MemoryStore) ListActive(ctx context.Context) ([]domain.Broadcast, error) {
	s.mu.RLock()
	out := make([]domain.Broadcast, 0, len(s.active))
	for _, id := range s.active {
		out = append(out, *s.byID[id])
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
