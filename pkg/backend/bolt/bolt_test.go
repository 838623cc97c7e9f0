package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/backend/backendtest"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, opts Options) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "cache.bbolt"), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestContract(t *testing.T) {
	s := openStore(t, Options{})

	backendtest.Run(t, s)
	backendtest.RunExpiry(t, s)
}

func TestExpiryAndSweep(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := openStore(t, Options{Bucket: "test", Now: func() time.Time { return now }})

	require.NoError(t, s.Set(ctx, []string{"short"}, []byte("1"), expiry.After(time.Second)))
	require.NoError(t, s.Set(ctx, []string{"other"}, []byte("2"), expiry.After(time.Second)))
	require.NoError(t, s.Set(ctx, []string{"never"}, []byte("3"), expiry.Never))

	got, err := s.Get(ctx, []string{"short"})
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	now = now.Add(time.Second)
	_, err = s.Get(ctx, []string{"short"})
	assert.ErrorIs(t, err, backend.ErrNotFound)

	removed, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed, "short was already removed on read")

	got, err = s.Get(ctx, []string{"never"})
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got)
}

func TestEvictExpired_KeepsRewrittenValue(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := openStore(t, Options{Now: func() time.Time { return now }})
	key := []string{"k"}

	require.NoError(t, s.Set(ctx, key, []byte("stale"), expiry.After(time.Second)))
	now = now.Add(time.Minute)

	// Get saw "stale" as expired; "fresh" lands before the eviction runs.
	require.NoError(t, s.Set(ctx, key, []byte("fresh"), expiry.Never))
	got, err := s.evictExpired([]byte(backend.JoinKey(key)))
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)

	got, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)

	require.NoError(t, s.Set(ctx, key, []byte("short"), expiry.After(time.Second)))
	now = now.Add(time.Minute)
	_, err = s.evictExpired([]byte(backend.JoinKey(key)))
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestGet_ConcurrentRewritesSurvive(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := openStore(t, Options{Now: func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}})

	keys := make([][]string, 50)
	for i := range keys {
		keys[i] = []string{fmt.Sprintf("k%d", i)}
		require.NoError(t, s.Set(ctx, keys[i], []byte("stale"), expiry.After(time.Second)))
	}

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for _, key := range keys {
			_ = s.Set(ctx, key, []byte("fresh"), expiry.Never)
		}
	}()
	go func() {
		defer wg.Done()
		for _, key := range keys {
			_, _ = s.Get(ctx, key)
		}
	}()
	wg.Wait()

	for _, key := range keys {
		got, err := s.Get(ctx, key)
		require.NoError(t, err, "key %v", key)
		assert.Equal(t, []byte("fresh"), got)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.bbolt")

	s, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, []string{"users", "42"}, []byte(`{"name":"Bob"}`), expiry.Never))
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, []string{"users", "42"})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"Bob"}`), got)
}

func TestNewFactory(t *testing.T) {
	_, err := NewFactory(backend.Options{})
	assert.Error(t, err)

	b, err := NewFactory(backend.Options{"path": filepath.Join(t.TempDir(), "f.bbolt"), "bucket": "web"})
	require.NoError(t, err)
	s := b.(*Store)
	defer s.Close()

	assert.Equal(t, []byte("web"), s.bucket)
	assert.True(t, s.IsAvailable(context.Background()))
}
