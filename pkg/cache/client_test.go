package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirehound/search/pkg/config"
)

func newTestClient(t *testing.T) (*ResilientRedisClient, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewResilientRedisClientWithRedis(client, nil, nil), mr
}

func TestResilientClientGetSet(t *testing.T) {
	rc, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k1", "v1", time.Minute))

	val, found, err := rc.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1", val)
}

func TestResilientClientGetMissing(t *testing.T) {
	rc, _ := newTestClient(t)

	val, found, err := rc.Get(context.Background(), "absent")
	require.NoError(t, err, "a key miss is not a backend error")
	assert.False(t, found)
	assert.Empty(t, val)
}

func TestResilientClientMissesDoNotTripBreaker(t *testing.T) {
	rc, _ := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, found, err := rc.Get(ctx, "cold")
		require.NoError(t, err)
		require.False(t, found)
	}

	assert.False(t, rc.IsOpen(), "cold-cache misses must not open the breaker")
}

func TestResilientClientBreakerOpensOnFailures(t *testing.T) {
	rc, mr := newTestClient(t)
	ctx := context.Background()

	mr.SetError("LOADING redis is loading the dataset in memory")

	for i := 0; i < 5; i++ {
		_, _, err := rc.Get(ctx, "k")
		require.Error(t, err)
	}

	assert.True(t, rc.IsOpen())
}

func TestResilientClientDel(t *testing.T) {
	rc, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k1", "v1", time.Minute))
	require.NoError(t, rc.Del(ctx, "k1"))

	_, found, err := rc.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, rc.Del(ctx), "deleting nothing is a no-op")
}

func TestResilientClientTTL(t *testing.T) {
	rc, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "k1", "v1", 5*time.Minute))

	ttl, err := rc.TTL(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)
}

func TestResilientClientHealth(t *testing.T) {
	rc, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, rc.Health(ctx))

	mr.SetError("LOADING redis is loading the dataset in memory")
	assert.Error(t, rc.Health(ctx))
}

func TestNewResilientRedisClientConnectFailure(t *testing.T) {
	cfg := config.CacheConfig{
		Address:     "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	}

	_, err := NewResilientRedisClient(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}
