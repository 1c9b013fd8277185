package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "activity-signup-service/internal/domain/activity"
)

// setupTestRedis creates a miniredis instance for testing
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client, mr
}

func sampleListing() []domain.Details {
	return []domain.Details{
		{
			Activity: domain.Activity{
				ID:              1,
				Name:            "Chess Club",
				Description:     "Learn strategies and compete in chess tournaments",
				Schedule:        "Fridays, 3:30 PM - 5:00 PM",
				MaxParticipants: 12,
			},
			Participants: []string{"michael@mergington.edu", "daniel@mergington.edu"},
		},
		{
			Activity:     domain.Activity{ID: 2, Name: "Math Club", MaxParticipants: 10},
			Participants: []string{},
		},
	}
}

func TestRedisActivityCache_SetAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisActivityCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	stored, err := cache.SetList(ctx, sampleListing(), 0)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists(ListKey))
	assert.Equal(t, time.Minute, mr.TTL(ListKey))

	got, err := cache.GetList(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Chess Club", got[0].Name)
	assert.Equal(t, 12, got[0].MaxParticipants)
	assert.Equal(t, []string{"michael@mergington.edu", "daniel@mergington.edu"}, got[0].Participants)
	assert.Empty(t, got[1].Participants)
}

func TestRedisActivityCache_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisActivityCache(client, time.Minute, zaptest.NewLogger(t))

	got, err := cache.GetList(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisActivityCache_Expiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisActivityCache(client, 30*time.Second, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := cache.SetList(ctx, sampleListing(), 0)
	require.NoError(t, err)
	mr.FastForward(31 * time.Second)

	got, err := cache.GetList(ctx)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisActivityCache_Invalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisActivityCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := cache.SetList(ctx, sampleListing(), 0)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists(ListKey))
	mr.CheckGet(t, VersionKey, "1")

	// Invalidating an empty cache is fine
	assert.NoError(t, cache.Invalidate(ctx))
	mr.CheckGet(t, VersionKey, "2")
}

func TestRedisActivityCache_SetListRejectsOutdatedVersion(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisActivityCache(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	version, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	// A write commits while the listing is being read
	require.NoError(t, cache.Invalidate(ctx))

	stored, err := cache.SetList(ctx, sampleListing(), version)
	require.NoError(t, err)
	assert.False(t, stored)
	assert.False(t, mr.Exists(ListKey))

	current, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), current)

	stored, err = cache.SetList(ctx, sampleListing(), current)
	require.NoError(t, err)
	assert.True(t, stored)
	assert.True(t, mr.Exists(ListKey))
}

func TestRedisActivityCache_SetListWithoutTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisActivityCache(client, 0, zaptest.NewLogger(t))

	stored, err := cache.SetList(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.True(t, stored)
	mr.CheckGet(t, ListKey, "[]")
	assert.Equal(t, time.Duration(0), mr.TTL(ListKey))
}

func TestRedisActivityCache_CorruptedValue(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisActivityCache(client, time.Minute, zaptest.NewLogger(t))

	require.NoError(t, mr.Set(ListKey, "{not json"))

	got, err := cache.GetList(context.Background())
	assert.Error(t, err)
	assert.Nil(t, got)
}

func TestRedisActivityCache_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisActivityCache(client, time.Minute, zaptest.NewLogger(t))
	mr.Close()

	_, err := cache.GetList(context.Background())
	assert.Error(t, err)
	_, err = cache.SetList(context.Background(), sampleListing(), 0)
	assert.Error(t, err)
	_, err = cache.Version(context.Background())
	assert.Error(t, err)
}
