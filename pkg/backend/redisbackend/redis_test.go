package redisbackend

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/backend/backendtest"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err(), "Failed to ping Redis")

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("Error closing Redis client: %v", err)
		}
	})

	return client
}

func TestContract(t *testing.T) {
	s := New(setupRedis(t))

	backendtest.Run(t, s)
	backendtest.RunExpiry(t, s)
}

func TestSetStoresTTL(t *testing.T) {
	ctx := context.Background()
	client := setupRedis(t)
	s := New(client)

	require.NoError(t, s.Set(ctx, []string{"redisbackend", "ttl"}, []byte("v"), expiry.After(time.Minute)))
	ttl, err := client.TTL(ctx, "redisbackend.ttl").Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 2)

	require.NoError(t, s.Set(ctx, []string{"redisbackend", "ttl"}, []byte("v"), expiry.Never))
	ttl, err = client.TTL(ctx, "redisbackend.ttl").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "no expiry")

	require.NoError(t, s.Close(), "closing a borrowed client is a no-op")
	assert.NoError(t, client.Ping(ctx).Err())
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()
	s := New(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))

	assert.False(t, s.IsAvailable(ctx))

	_, err := s.Get(ctx, []string{"foo"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, backend.ErrNotFound)
}

func TestNewFactory(t *testing.T) {
	b, err := NewFactory(backend.Options{"addr": "127.0.0.1:1", "db": "2"})
	require.NoError(t, err)

	s := b.(*Store)
	assert.Equal(t, 2, s.client.(*redis.Client).Options().DB)
	assert.NoError(t, s.Close())

	b, err = NewFactory(backend.Options{"url": "redis://localhost:6379/5"})
	require.NoError(t, err)
	assert.Equal(t, 5, b.(*Store).client.(*redis.Client).Options().DB)

	_, err = NewFactory(backend.Options{"url": "http://nope"})
	assert.Error(t, err)
}
