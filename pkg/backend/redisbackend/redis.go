// Package redisbackend stores cache entries as plain Redis strings.
package redisbackend

import (
	"context"
	"errors"
	"fmt"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/redis/go-redis/v9"
)

type Store struct {
	client redis.UniversalClient
	owned  bool
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Deleter = (*Store)(nil)
)

// New wraps an existing client. Closing the Store leaves the client open.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// NewFactory dials Redis from the "addr", "password" and "db" options, or from "url".
func NewFactory(opts backend.Options) (backend.Backend, error) {
	url, err := opts.String("url", "")
	if err != nil {
		return nil, err
	}

	var options *redis.Options
	if url != "" {
		if options, err = redis.ParseURL(url); err != nil {
			return nil, fmt.Errorf("redis backend: %w", err)
		}
	} else {
		addr, err := opts.String("addr", "localhost:6379")
		if err != nil {
			return nil, err
		}
		password, err := opts.String("password", "")
		if err != nil {
			return nil, err
		}
		db, err := opts.Int("db", 0)
		if err != nil {
			return nil, err
		}
		options = &redis.Options{Addr: addr, Password: password, DB: db}
	}

	return &Store{client: redis.NewClient(options), owned: true}, nil
}

func (s *Store) IsAvailable(ctx context.Context) bool {
	return s.client.Ping(ctx).Err() == nil
}

// Set uses SET, with an expiry when ttl has one. An elapsed ttl deletes the key.
func (s *Store) Set(ctx context.Context, segments []string, value []byte, ttl expiry.TTL) error {
	key := backend.JoinKey(segments)
	if ttl.Elapsed() {
		return s.del(ctx, key)
	}

	d, _ := ttl.Duration()
	if err := s.client.Set(ctx, key, value, d).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, segments []string) ([]byte, error) {
	key := backend.JoinKey(segments)
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return b, nil
}

func (s *Store) Delete(ctx context.Context, segments []string) error {
	return s.del(ctx, backend.JoinKey(segments))
}

func (s *Store) del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Close closes the client when the Store dialed it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
