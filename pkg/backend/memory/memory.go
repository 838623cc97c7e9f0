// Package memory is an in-process backend on top of a bounded LRU.
//
// Expired entries are dropped lazily when read; the LRU bound keeps
// never-read entries from growing the map without limit.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 4096

type Config struct {
	// Size is the maximum number of entries kept; <= 0 means DefaultSize.
	Size int
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
	hasExpiry bool
}

type Store struct {
	// mu serializes writers with the expiry check-and-remove in Get and
	// Sweep, so a fresh Set is never removed as expired. The clock is read
	// outside it.
	mu    sync.Mutex
	items *lru.Cache[string, entry]
	now   func() time.Time
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Deleter = (*Store)(nil)
	_ backend.Sweeper = (*Store)(nil)
)

func New(cfg Config) (*Store, error) {
	size := cfg.Size
	if size <= 0 {
		size = DefaultSize
	}

	items, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("memory backend: %w", err)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{items: items, now: now}, nil
}

// NewFactory reads the "size" option.
func NewFactory(opts backend.Options) (backend.Backend, error) {
	size, err := opts.Int("size", DefaultSize)
	if err != nil {
		return nil, err
	}
	return New(Config{Size: size})
}

func (s *Store) IsAvailable(context.Context) bool { return true }

func (s *Store) Set(_ context.Context, segments []string, value []byte, ttl expiry.TTL) error {
	key := backend.JoinKey(segments)
	if ttl.Elapsed() {
		s.mu.Lock()
		s.items.Remove(key)
		s.mu.Unlock()
		return nil
	}

	e := entry{value: append([]byte(nil), value...)}
	if deadline, ok := ttl.Deadline(s.now()); ok {
		e.expiresAt = deadline
		e.hasExpiry = true
	}

	s.mu.Lock()
	s.items.Add(key, e)
	s.mu.Unlock()
	return nil
}

func (s *Store) Get(_ context.Context, segments []string) ([]byte, error) {
	key := backend.JoinKey(segments)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items.Get(key)
	if !ok {
		return nil, backend.ErrNotFound
	}

	if e.hasExpiry && !e.expiresAt.After(now) {
		s.items.Remove(key)
		return nil, backend.ErrNotFound
	}

	return append([]byte(nil), e.value...), nil
}

func (s *Store) Delete(_ context.Context, segments []string) error {
	s.mu.Lock()
	s.items.Remove(backend.JoinKey(segments))
	s.mu.Unlock()
	return nil
}

// Sweep drops every expired entry and returns how many were dropped.
func (s *Store) Sweep(context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range s.items.Keys() {
		// Peek leaves recency untouched.
		e, ok := s.items.Peek(key)
		if ok && e.hasExpiry && !e.expiresAt.After(now) {
			s.items.Remove(key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones not yet read included.
func (s *Store) Len() int {
	return s.items.Len()
}
