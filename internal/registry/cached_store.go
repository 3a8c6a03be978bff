package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Shepherdphiri/z-radio/internal/cache"
	"github.com/Shepherdphiri/z-radio/internal/domain"
	"github.com/Shepherdphiri/z-radio/pkg/log"
)

// CachedStore is a read-through cache in front of another Store.
// Lookups by id and by room id are cached; every write invalidates both keys.
type CachedStore struct {
	inner Store
	cache cache.BroadcastCache
	ttl   time.Duration
	sf    singleflight.Group
}

// NewCachedStore wraps inner with c.
func NewCachedStore(inner Store, c cache.BroadcastCache, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner: inner,
		cache: c,
		ttl:   ttl,
	}
}

func (s *CachedStore) Create(ctx context.Context, roomID, title string, quality domain.AudioQuality) (*domain.Broadcast, error) {
	b, err := s.inner.Create(ctx, roomID, title, quality)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.cache.BuildKeyByRoomID(roomID))
	return b, nil
}

func (s *CachedStore) GetByID(ctx context.Context, id string) (*domain.Broadcast, error) {
	return s.readThrough(ctx, s.cache.BuildKeyByID(id), func() (*domain.Broadcast, error) {
		return s.inner.GetByID(ctx, id)
	})
}

func (s *CachedStore) GetByRoomID(ctx context.Context, roomID string) (*domain.Broadcast, error) {
	return s.readThrough(ctx, s.cache.BuildKeyByRoomID(roomID), func() (*domain.Broadcast, error) {
		return s.inner.GetByRoomID(ctx, roomID)
	})
}

func (s *CachedStore) Update(ctx context.Context, id string, patch domain.BroadcastPatch) (*domain.Broadcast, error) {
	b, err := s.inner.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, s.cache.BuildKeyByID(id), s.cache.BuildKeyByRoomID(b.RoomID))
	return b, nil
}

func (s *CachedStore) ListActive(ctx context.Context) ([]domain.Broadcast, error) {
	return s.inner.ListActive(ctx)
}

func (s *CachedStore) readThrough(ctx context.Context, key string, load func() (*domain.Broadcast, error)) (*domain.Broadcast, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		b := cached.Broadcast
		return &b, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Str("key", key).Msg("broadcast cache get failed, falling back to store")
	}

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		b, err := load()
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, &cache.BroadcastCacheResult{Broadcast: *b}, s.ttl); err != nil {
			l.Warn().Err(err).Str("key", key).Msg("failed to cache broadcast")
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}

	b, ok := result.(*domain.Broadcast)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	cp := *b
	return &cp, nil
}

func (s *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate broadcast cache")
	}
}
