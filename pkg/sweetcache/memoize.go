package sweetcache

import (
	"context"
	"errors"
	"fmt"

	"github.com/IsaacDSC/sweetcache/pkg/cachekey"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
)

// Memoize wraps fn so its result is cached under key.
//
// The key is fixed when Memoize is called and shared by every call. On a hit
// fn is not invoked. On a miss fn runs, its result is stored with expires and
// returned. Lookup errors other than ErrNotFound are returned without calling
// fn, and an error from fn is returned without storing anything. Concurrent
// misses may each run fn; the last write wins.
func Memoize[T any](c *Cache, key cachekey.Spec, expires any, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	call := MemoizeFunc(c, key, expires, func(ctx context.Context, _ struct{}) (T, error) {
		return fn(ctx)
	})

	return func(ctx context.Context) (T, error) {
		return call(ctx, struct{}{})
	}
}

// MemoizeFunc is Memoize for operations taking an argument. The argument is
// passed through to fn on a miss but takes no part in the key; callers that
// need per-argument entries build the key before wrapping.
//
// When storing the computed result fails, the result is returned together
// with the error.
func MemoizeFunc[A, T any](c *Cache, key cachekey.Spec, expires any, fn func(ctx context.Context, arg A) (T, error)) func(ctx context.Context, arg A) (T, error) {
	segments, keyErr := c.segments(key)
	if keyErr == nil {
		_, keyErr = expiry.Coerce(expires, c.now())
	}

	return func(ctx context.Context, arg A) (T, error) {
		var zero T
		if keyErr != nil {
			return zero, keyErr
		}

		var cached T
		err := c.get(ctx, segments, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return zero, err
		}

		result, err := fn(ctx, arg)
		if err != nil {
			return zero, err
		}

		// Absolute expirations are measured at write time, not at wrap time.
		ttl, err := expiry.Coerce(expires, c.now())
		if err != nil {
			return result, err
		}

		if err := c.set(ctx, segments, result, ttl); err != nil {
			return result, fmt.Errorf("memoize: %w", err)
		}

		return result, nil
	}
}
