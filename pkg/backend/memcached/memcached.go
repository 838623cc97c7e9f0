// Package memcached stores cache entries in one or more memcached servers.
package memcached

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/bradfitz/gomemcache/memcache"
)

// maxRelativeExpiration is the largest expiration memcached reads as seconds
// from now; larger values are read as a unix timestamp.
const maxRelativeExpiration = 30 * 24 * time.Hour

var ErrExpirationOutOfRange = errors.New("memcached: expiration out of range")

type Store struct {
	client *memcache.Client
	now    func() time.Time
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Deleter = (*Store)(nil)
)

func New(client *memcache.Client) *Store {
	return &Store{client: client, now: time.Now}
}

// NewFactory reads "servers" (a list or a comma separated string) and "timeout".
func NewFactory(opts backend.Options) (backend.Backend, error) {
	servers, err := opts.Strings("servers", []string{"localhost:11211"})
	if err != nil {
		return nil, err
	}
	if len(servers) == 0 {
		return nil, errors.New("memcached backend: no servers")
	}

	timeout, err := opts.Duration("timeout", memcache.DefaultTimeout)
	if err != nil {
		return nil, err
	}

	client := memcache.New(servers...)
	client.Timeout = timeout
	return New(client), nil
}

// IsAvailable pings every server. The memcache client takes no context.
func (s *Store) IsAvailable(context.Context) bool {
	return s.client.Ping() == nil
}

func (s *Store) Set(_ context.Context, segments []string, value []byte, ttl expiry.TTL) error {
	key := backend.JoinKey(segments)
	if ttl.Elapsed() {
		return s.del(key)
	}

	exp, err := s.expiration(ttl)
	if err != nil {
		return fmt.Errorf("memcached set %s: %w", key, err)
	}

	if err := s.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: exp,
	}); err != nil {
		return fmt.Errorf("memcached set %s: %w", key, err)
	}

	return nil
}

func (s *Store) Get(_ context.Context, segments []string) ([]byte, error) {
	key := backend.JoinKey(segments)
	item, err := s.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("memcached get %s: %w", key, err)
	}

	return item.Value, nil
}

func (s *Store) Delete(_ context.Context, segments []string) error {
	return s.del(backend.JoinKey(segments))
}

func (s *Store) del(key string) error {
	err := s.client.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcached delete %s: %w", key, err)
	}
	return nil
}

// expiration converts ttl into memcached's Expiration field: 0 never expires,
// up to 30 days is relative seconds, beyond that an absolute unix time.
// Sub-second TTLs round up to one second so they do not turn into "never".
// Deadlines past what the 32-bit field can hold fail with
// ErrExpirationOutOfRange.
func (s *Store) expiration(ttl expiry.TTL) (int32, error) {
	d, ok := ttl.Duration()
	if !ok {
		return 0, nil
	}
	if d > maxRelativeExpiration {
		deadline := s.now().Add(d).Unix()
		if deadline > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s", ErrExpirationOutOfRange, ttl)
		}
		return int32(deadline), nil
	}
	if seconds := ttl.Seconds(); seconds > 0 {
		return int32(seconds), nil
	}
	return 1, nil
}
