package rediscache

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

func unreachable() redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func liveClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestEncodeDecode(t *testing.T) {
	value, expiresAt, err := decode(encode([]byte("v"), 42))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
	assert.Equal(t, int64(42), expiresAt)

	value, expiresAt, err = decode(encode(nil, 0))
	require.NoError(t, err)
	assert.Empty(t, value)
	assert.Zero(t, expiresAt)

	_, _, err = decode([]byte("short"))
	assert.ErrorIs(t, err, ErrMalformedValue)
}

func TestGet_LocalCopyHonoursDeadline(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := New(unreachable(), Config{Now: func() time.Time { return now }})
	ctx := context.Background()

	s.local.Set("k", encode([]byte("v"), now.Add(time.Second).UnixNano()))

	got, err := s.Get(ctx, []string{"k"})
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(2 * time.Second)
	_, err = s.Get(ctx, []string{"k"})
	assert.ErrorIs(t, err, backend.ErrNotFound)

	_, ok := s.local.Get("k")
	assert.False(t, ok, "expired local copy should be dropped")
}

func TestGet_MalformedLocalCopy(t *testing.T) {
	s := New(unreachable(), Config{})
	s.local.Set("k", []byte("bad"))

	_, err := s.Get(context.Background(), []string{"k"})
	assert.ErrorIs(t, err, ErrMalformedValue)
}

func TestSet_NeverWritesRedis(t *testing.T) {
	s := New(unreachable(), Config{})

	err := s.Set(context.Background(), []string{"k"}, []byte("v"), expiry.Never)
	require.Error(t, err, "a write without expiry must reach Redis")

	_, ok := s.local.Get("k")
	assert.False(t, ok, "failed write should not leave a local copy")
}

func TestNeverVisibleToOtherInstances(t *testing.T) {
	rdb := liveClient(t)
	ctx := context.Background()
	key := []string{"rediscache", "never", time.Now().Format(time.RFC3339Nano)}

	writer := New(rdb, Config{})
	require.NoError(t, writer.Set(ctx, key, []byte("v"), expiry.Never))
	t.Cleanup(func() { _ = writer.Delete(ctx, key) })

	reader := New(rdb, Config{})
	got, err := reader.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ttl, err := rdb.TTL(ctx, backend.JoinKey(key)).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "key should have no Redis expiry")
}

func TestContract(t *testing.T) {
	s := New(liveClient(t), Config{})
	backendtest.Run(t, s)
	backendtest.RunExpiry(t, s)
}

func TestUnavailable(t *testing.T) {
	s := New(unreachable(), Config{})
	assert.False(t, s.IsAvailable(context.Background()))
}

func TestNewFactory(t *testing.T) {
	b, err := NewFactory(backend.Options{"local_ttl": "30s", "local_size": 10})
	require.NoError(t, err)
	assert.NoError(t, b.(*Store).Close())

	_, err = NewFactory(backend.Options{"local_ttl": struct{}{}})
	assert.Error(t, err)
}
