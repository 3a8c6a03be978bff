package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Shepherdphiri/z-radio/pkg/pubsub"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisBroadcastCache struct {
	client *redis.Client
	prefix string
}

func NewRedisBroadcastCache(cfg pubsub.RedisConfig, prefix string) (*RedisBroadcastCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisBroadcastCacheFromClient(client, prefix), nil
}

// NewRedisBroadcastCacheFromClient wraps an existing client.
func NewRedisBroadcastCacheFromClient(client *redis.Client, prefix string) *RedisBroadcastCache {
	return &RedisBroadcastCache{
		client: client,
		prefix: prefix,
	}
}

func (c *RedisBroadcastCache) BuildKeyByID(id string) string {
	return fmt.Sprintf("%s:id:%s", c.prefix, id)
}

func (c *RedisBroadcastCache) BuildKeyByRoomID(roomID string) string {
	return fmt.Sprintf("%s:room:%s", c.prefix, roomID)
}

func (c *RedisBroadcastCache) Get(ctx context.Context, key string) (*BroadcastCacheResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result BroadcastCacheResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisBroadcastCache) Set(ctx context.Context, key string, result *BroadcastCacheResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisBroadcastCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}

	return nil
}

func (c *RedisBroadcastCache) Close() error {
	return c.client.Close()
}
