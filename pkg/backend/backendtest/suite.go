// Package backendtest checks a backend.Backend against the contract every
// backend shares. Backend packages call Run from their own tests.
package backendtest

import (
	"context"
	"testing"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises b. Keys are namespaced with a random segment so live servers can be shared.
func Run(t *testing.T, b backend.Backend) {
	t.Helper()
	ctx := context.Background()
	ns := uuid.NewString()
	key := func(parts ...string) []string {
		return append([]string{"backendtest", ns}, parts...)
	}

	t.Run("is available", func(t *testing.T) {
		assert.True(t, b.IsAvailable(ctx))
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, key("a"), []byte(`{"name":"Bob"}`), expiry.Never))

		got, err := b.Get(ctx, key("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"name":"Bob"}`), got)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, key("b"), []byte("1"), expiry.Never))
		require.NoError(t, b.Set(ctx, key("b"), []byte("2"), expiry.After(time.Hour)))

		got, err := b.Get(ctx, key("b"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), got)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := b.Get(ctx, key("missing"))
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("segments are distinct keys", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, key("c", "d"), []byte("deep"), expiry.Never))

		_, err := b.Get(ctx, key("c"))
		assert.ErrorIs(t, err, backend.ErrNotFound)

		got, err := b.Get(ctx, key("c", "d"))
		require.NoError(t, err)
		assert.Equal(t, []byte("deep"), got)
	})

	t.Run("elapsed ttl leaves nothing behind", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, key("e"), []byte("v"), expiry.Never))
		require.NoError(t, b.Set(ctx, key("e"), []byte("w"), expiry.After(-time.Second)))

		_, err := b.Get(ctx, key("e"))
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	deleter, ok := b.(backend.Deleter)
	if !ok {
		return
	}

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.Set(ctx, key("f"), []byte("v"), expiry.Never))
		require.NoError(t, deleter.Delete(ctx, key("f")))
		require.NoError(t, deleter.Delete(ctx, key("f")), "deleting a missing key is not an error")

		_, err := b.Get(ctx, key("f"))
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})
}

// RunExpiry stores a value with a short TTL and waits for it to lapse.
// It sleeps, so backends only call it when the store honours sub-minute TTLs.
func RunExpiry(t *testing.T, b backend.Backend) {
	t.Helper()
	ctx := context.Background()
	k := []string{"backendtest", uuid.NewString(), "expiry"}

	require.NoError(t, b.Set(ctx, k, []byte("v"), expiry.After(time.Second)))

	_, err := b.Get(ctx, k)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := b.Get(ctx, k)
		return err != nil
	}, 5*time.Second, 100*time.Millisecond)

	_, err = b.Get(ctx, k)
	assert.ErrorIs(t, err, backend.ErrNotFound)
}
