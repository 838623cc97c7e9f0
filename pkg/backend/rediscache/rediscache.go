// Package rediscache is a Redis backend fronted by a process-local TinyLFU
// cache, for read-heavy keys shared by many instances.
//
// Local copies live for at most LocalTTL, so another instance's write may be
// observed late by up to that long. Every stored value carries its own
// deadline, so a local copy never outlives the entry's TTL.
package rediscache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLocalSize = 10_000
	DefaultLocalTTL  = time.Minute

	headerSize = 8
)

var ErrMalformedValue = errors.New("rediscache: malformed value")

type Config struct {
	LocalSize int
	LocalTTL  time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type Store struct {
	rdb   redis.UniversalClient
	local cache.LocalCache
	cache *cache.Cache
	now   func() time.Time
	owned bool
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Deleter = (*Store)(nil)
)

func New(rdb redis.UniversalClient, cfg Config) *Store {
	if cfg.LocalSize <= 0 {
		cfg.LocalSize = DefaultLocalSize
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = DefaultLocalTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	local := cache.NewTinyLFU(cfg.LocalSize, cfg.LocalTTL)
	return &Store{
		rdb:   rdb,
		local: local,
		cache: cache.New(&cache.Options{
			Redis:      rdb,
			LocalCache: local,
		}),
		now: cfg.Now,
	}
}

// NewFactory reads "addr", "db", "local_size" and "local_ttl".
func NewFactory(opts backend.Options) (backend.Backend, error) {
	addr, err := opts.String("addr", "localhost:6379")
	if err != nil {
		return nil, err
	}
	db, err := opts.Int("db", 0)
	if err != nil {
		return nil, err
	}
	size, err := opts.Int("local_size", DefaultLocalSize)
	if err != nil {
		return nil, err
	}
	localTTL, err := opts.Duration("local_ttl", DefaultLocalTTL)
	if err != nil {
		return nil, err
	}

	s := New(redis.NewClient(&redis.Options{Addr: addr, DB: db}), Config{LocalSize: size, LocalTTL: localTTL})
	s.owned = true
	return s, nil
}

func (s *Store) IsAvailable(ctx context.Context) bool {
	return s.rdb.Ping(ctx).Err() == nil
}

// Set writes Redis first and only then the local tier, so a failed write
// leaves no local copy behind. A zero Redis expiration keeps the key forever.
func (s *Store) Set(ctx context.Context, segments []string, value []byte, ttl expiry.TTL) error {
	key := backend.JoinKey(segments)
	if ttl.Elapsed() {
		return s.Delete(ctx, segments)
	}

	var expiresAt int64
	var redisTTL time.Duration
	if d, ok := ttl.Duration(); ok {
		expiresAt = s.now().Add(d).UnixNano()
		redisTTL = d
	}

	buf := encode(value, expiresAt)
	if err := s.rdb.Set(ctx, key, buf, redisTTL).Err(); err != nil {
		return fmt.Errorf("rediscache set %s: %w", key, err)
	}
	s.local.Set(key, buf)

	return nil
}

func (s *Store) Get(ctx context.Context, segments []string) ([]byte, error) {
	key := backend.JoinKey(segments)

	var raw []byte
	err := s.cache.Get(ctx, key, &raw)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rediscache get %s: %w", key, err)
	}

	value, expiresAt, err := decode(raw)
	if err != nil {
		s.cache.DeleteFromLocalCache(key)
		return nil, fmt.Errorf("rediscache get %s: %w", key, err)
	}
	if expiresAt > 0 && s.now().UnixNano() >= expiresAt {
		s.cache.DeleteFromLocalCache(key)
		return nil, backend.ErrNotFound
	}

	return value, nil
}

func (s *Store) Delete(ctx context.Context, segments []string) error {
	key := backend.JoinKey(segments)
	err := s.cache.Delete(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		return fmt.Errorf("rediscache del %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}

// encode prefixes value with its deadline in unix nanoseconds; 0 never expires.
func encode(value []byte, expiresAt int64) []byte {
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf[:headerSize], uint64(expiresAt))
	copy(buf[headerSize:], value)
	return buf
}

func decode(raw []byte) ([]byte, int64, error) {
	if len(raw) < headerSize {
		return nil, 0, ErrMalformedValue
	}
	expiresAt := int64(binary.BigEndian.Uint64(raw[:headerSize]))
	return append([]byte(nil), raw[headerSize:]...), expiresAt, nil
}
