package service

import (
	"context"

	"github.com/Shepherdphiri/z-radio/internal/domain"
)

// BroadcastService defines the REST-facing broadcast logic.
type BroadcastService interface {
	CreateBroadcast(ctx context.Context, actor string, req *domain.CreateBroadcastRequest) (*domain.Broadcast, error)
	GetBroadcast(ctx context.Context, roomID string) (*domain.Broadcast, error)
	UpdateBroadcast(ctx context.Context, actor, id string, req *domain.UpdateBroadcastRequest) (*domain.Broadcast, error)
	ListActive(ctx context.Context) ([]domain.Broadcast, error)
	GetStats(ctx context.Context) (*domain.Stats, error)
}

// RoomAnnouncer pushes a room's current state to its members. *relay.Relay satisfies it.
type RoomAnnouncer interface {
	AnnounceRoom(ctx context.Context, roomID string)
	RoomSize(roomID string) int
}

// LifecycleEvents receives broadcast start and stop. *events.Emitter satisfies it.
type LifecycleEvents interface {
	BroadcastCreated(b *domain.Broadcast)
	BroadcastStopped(b *domain.Broadcast)
}
