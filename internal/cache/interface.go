package cache

import (
	"context"
	"time"

	"github.com/Shepherdphiri/z-radio/internal/domain"
)

type BroadcastCacheResult struct {
	Broadcast domain.Broadcast `json:"broadcast"`
}

type BroadcastCache interface {
	Get(ctx context.Context, key string) (*BroadcastCacheResult, error)
	Set(ctx context.Context, key string, result *BroadcastCacheResult, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	BuildKeyByID(id string) string
	BuildKeyByRoomID(roomID string) string
	Close() error
}
