package service

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/Shepherdphiri/z-radio/internal/audit"
	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/internal/registry"
	"github.com/Shepherdphiri/z-radio/pkg/log"
)

var (
	ErrBroadcastNotFound = errors.New("broadcast not found")
	ErrDuplicateRoom     = errors.New("room already has an active broadcast")
	ErrInvalidUpdate     = errors.New("update must set at least one field")
)

const (
	roomIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	roomIDLength   = 10
	// generated ids colliding with a live room are retried this many times
	roomIDAttempts = 3
)

// broadcastServiceImpl implements BroadcastService interface.
type broadcastServiceImpl struct {
	store             registry.Store
	rooms             RoomAnnouncer
	events            LifecycleEvents
	connectionQuality string
}

// NewBroadcastService creates a new broadcast service. events may be nil.
func NewBroadcastService(store registry.Store, rooms RoomAnnouncer, events LifecycleEvents, connectionQuality string) BroadcastService {
	return &broadcastServiceImpl{
		store:             store,
		rooms:             rooms,
		events:            events,
		connectionQuality: connectionQuality,
	}
}

// CreateBroadcast registers a broadcast, generating a room id when none is given.
func (s *broadcastServiceImpl) CreateBroadcast(ctx context.Context, actor string, req *domain.CreateBroadcastRequest) (*domain.Broadcast, error) {
	quality := req.AudioQuality
	if quality == "" {
		quality = domain.AudioQualityHigh
	}

	var (
		b   *domain.Broadcast
		err error
	)
	if req.RoomID != "" {
		b, err = s.store.Create(ctx, req.RoomID, req.Title, quality)
	} else {
		for i := 0; i < roomIDAttempts; i++ {
			var roomID string
			roomID, err = gonanoid.Generate(roomIDAlphabet, roomIDLength)
			if err != nil {
				return nil, fmt.Errorf("generate room id: %w", err)
			}
			b, err = s.store.Create(ctx, roomID, req.Title, quality)
			if !errors.Is(err, registry.ErrDuplicateRoom) {
				break
			}
		}
	}
	if err != nil {
		if errors.Is(err, registry.ErrDuplicateRoom) {
			return nil, ErrDuplicateRoom
		}
		return nil, err
	}

	// Listeners may already be waiting in the room.
	s.rooms.AnnounceRoom(ctx, b.RoomID)
	b.ListenerCount = s.rooms.RoomSize(b.RoomID)

	if s.events != nil {
		s.events.BroadcastCreated(b)
	}
	audit.Log(ctx, audit.ActionCreateBroadcast, actor, b.ID, b.RoomID, "broadcast created")
	return b, nil
}

// GetBroadcast retrieves the broadcast for a room.
func (s *broadcastServiceImpl) GetBroadcast(ctx context.Context, roomID string) (*domain.Broadcast, error) {
	b, err := s.store.GetByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, registry.ErrBroadcastNotFound) {
			return nil, ErrBroadcastNotFound
		}
		return nil, err
	}
	return b, nil
}

// UpdateBroadcast merges the request into the broadcast. Changing isActive
// announces the new state to the room.
func (s *broadcastServiceImpl) UpdateBroadcast(ctx context.Context, actor, id string, req *domain.UpdateBroadcastRequest) (*domain.Broadcast, error) {
	patch := req.Patch()
	if patch.Empty() {
		return nil, ErrInvalidUpdate
	}

	b, err := s.store.Update(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrBroadcastNotFound):
			return nil, ErrBroadcastNotFound
		case errors.Is(err, registry.ErrDuplicateRoom):
			return nil, ErrDuplicateRoom
		}
		return nil, err
	}

	if patch.IsActive == nil {
		audit.Log(ctx, audit.ActionUpdateBroadcast, actor, b.ID, b.RoomID, "broadcast updated")
		return b, nil
	}

	s.rooms.AnnounceRoom(ctx, b.RoomID)
	if b.IsActive {
		audit.LogWithDetail(ctx, audit.ActionUpdateBroadcast, actor, b.ID, b.RoomID, "reactivated", "broadcast updated")
		return b, nil
	}

	if s.events != nil {
		s.events.BroadcastStopped(b)
	}
	audit.Log(ctx, audit.ActionStopBroadcast, actor, b.ID, b.RoomID, "broadcast stopped")

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldBroadcastID, b.ID).Str(log.FieldRoomID, b.RoomID).Msg("broadcast stopped")
	return b, nil
}

// ListActive lists live broadcasts, oldest first.
func (s *broadcastServiceImpl) ListActive(ctx context.Context) ([]domain.Broadcast, error) {
	return s.store.ListActive(ctx)
}

// GetStats aggregates the active broadcasts.
func (s *broadcastServiceImpl) GetStats(ctx context.Context) (*domain.Stats, error) {
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		ActiveStreams:     len(active),
		ConnectionQuality: s.connectionQuality,
	}
	for _, b := range active {
		stats.TotalListeners += b.ListenerCount
	}
	return stats, nil
}
