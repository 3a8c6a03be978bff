package registry

import (
	"context"
	"errors"

	"github.com/Shepherdphiri/z-radio/internal/domain"
)

var (
	ErrBroadcastNotFound = errors.New("broadcast not found")
	ErrDuplicateRoom     = errors.New("room already has an active broadcast")
	ErrEmptyRoomID       = errors.New("room id must not be empty")
)

// Store is the broadcast registry. Implementations must be safe for concurrent
// use and serialize writes to a single record. Returned broadcasts are copies.
type Store interface {
	// Create records a new active broadcast with listenerCount 0.
	// It fails with ErrDuplicateRoom when roomID already has an active broadcast.
	Create(ctx context.Context, roomID, title string, quality domain.AudioQuality) (*domain.Broadcast, error)

	// GetByID looks a broadcast up by its server-assigned id.
	GetByID(ctx context.Context, id string) (*domain.Broadcast, error)

	// GetByRoomID returns the room's active broadcast, or its most recent
	// inactive one when nothing is live.
	GetByRoomID(ctx context.Context, roomID string) (*domain.Broadcast, error)

	// Update applies a shallow merge of the patch.
	Update(ctx context.Context, id string, patch domain.BroadcastPatch) (*domain.Broadcast, error)

	// ListActive returns every active broadcast, oldest first.
	ListActive(ctx context.Context) ([]domain.Broadcast, error)
}

// CountWriter persists listener counts computed by the relay.
type CountWriter interface {
	WriteListenerCount(ctx context.Context, broadcastID string, count int)
}
