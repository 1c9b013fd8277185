package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "activity-signup-service/internal/domain/activity"
)

const (
	// ListKey is the Redis key holding the serialized activity listing.
	ListKey = "activities:list"
	// VersionKey is bumped on every invalidation. A fill only lands when
	// the version it was read under is still current.
	VersionKey = "activities:list:version"
)

// setIfVersion stores the listing only while the version is unchanged.
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// ActivityCache defines the interface for caching the activity listing.
type ActivityCache interface {
	// GetList retrieves the cached listing.
	// Returns nil if nothing is cached.
	GetList(ctx context.Context) ([]domain.Details, error)

	// Version returns the current listing version, 0 if none was recorded.
	Version(ctx context.Context) (int64, error)

	// SetList stores the listing with the configured TTL if the version is
	// still the one the listing was read under. It reports whether it stored.
	SetList(ctx context.Context, list []domain.Details, version int64) (bool, error)

	// Invalidate bumps the version and drops the cached listing.
	Invalidate(ctx context.Context) error
}

// RedisActivityCache implements ActivityCache using Redis as the backing store.
type RedisActivityCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisActivityCache creates a new Redis-backed listing cache.
func NewRedisActivityCache(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisActivityCache {
	return &RedisActivityCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// GetList retrieves the listing from Redis.
func (c *RedisActivityCache) GetList(ctx context.Context) ([]domain.Details, error) {
	data, err := c.client.Get(ctx, ListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("key", ListKey))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("key", ListKey), zap.Error(err))
		return nil, err
	}

	var list []domain.Details
	if err := json.Unmarshal(data, &list); err != nil {
		c.log.Error("failed to unmarshal cached listing", zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("key", ListKey), zap.Int("activities", len(list)))
	return list, nil
}

// Version reads the listing version from Redis.
func (c *RedisActivityCache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, VersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.Error("failed to get listing version", zap.Error(err))
		return 0, err
	}
	return v, nil
}

// SetList stores the listing in Redis with TTL unless an invalidation
// happened after version was read.
func (c *RedisActivityCache) SetList(ctx context.Context, list []domain.Details, version int64) (bool, error) {
	if list == nil {
		list = []domain.Details{}
	}

	data, err := json.Marshal(list)
	if err != nil {
		c.log.Error("failed to marshal listing for cache", zap.Error(err))
		return false, err
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{ListKey, VersionKey},
		strconv.FormatInt(version, 10), data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		c.log.Error("failed to set cache", zap.String("key", ListKey), zap.Error(err))
		return false, err
	}

	if stored == 0 {
		c.log.Debug("skipped stale listing fill", zap.Int64("version", version))
		return false, nil
	}
	c.log.Debug("cached listing", zap.Int("activities", len(list)), zap.Duration("ttl", c.ttl))
	return true, nil
}

// Invalidate bumps the listing version and removes the listing from Redis.
func (c *RedisActivityCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, VersionKey)
		pipe.Del(ctx, ListKey)
		return nil
	})
	if err != nil {
		c.log.Error("failed to invalidate cache", zap.String("key", ListKey), zap.Error(err))
		return err
	}

	c.log.Debug("invalidated listing cache")
	return nil
}
