// Package bolt persists cache entries in a single bbolt database file.
//
// Each value is stored behind an 8 byte big endian header holding its expiry
// as unix nanoseconds, 0 meaning no expiry. Expired entries are removed when
// read and by Sweep.
package bolt

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	bolt "go.etcd.io/bbolt"
)

const (
	DefaultBucket = "sweetcache"
	headerSize    = 8
)

type Options struct {
	// Bucket is the bbolt bucket entries live in.
	Bucket string
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

type Store struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Deleter = (*Store)(nil)
	_ backend.Sweeper = (*Store)(nil)
)

// Open initializes or opens a Store at path.
func Open(path string, opts Options) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt backend: %w", err)
	}

	bucket := []byte(DefaultBucket)
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bolt backend: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{db: db, bucket: bucket, now: now}, nil
}

// NewFactory reads the "path" and "bucket" options.
func NewFactory(opts backend.Options) (backend.Backend, error) {
	path, err := opts.String("path", "")
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, errors.New("bolt backend: path is required")
	}

	bucket, err := opts.String("bucket", DefaultBucket)
	if err != nil {
		return nil, err
	}

	return Open(path, Options{Bucket: bucket})
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IsAvailable reports whether the database is open and readable.
func (s *Store) IsAvailable(context.Context) bool {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) == nil {
			return errors.New("bucket missing")
		}
		return nil
	}) == nil
}

func (s *Store) Set(_ context.Context, segments []string, value []byte, ttl expiry.TTL) error {
	key := []byte(backend.JoinKey(segments))
	if ttl.Elapsed() {
		return s.delete(key)
	}

	var expiresAt int64
	if deadline, ok := ttl.Deadline(s.now()); ok {
		expiresAt = deadline.UnixNano()
	}

	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf[:headerSize], uint64(expiresAt))
	copy(buf[headerSize:], value)

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put(key, buf)
	})
}

func (s *Store) Get(_ context.Context, segments []string) ([]byte, error) {
	key := []byte(backend.JoinKey(segments))

	var (
		out     []byte
		exists  bool
		expired bool
	)
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get(key)
		if len(v) < headerSize {
			return nil
		}
		exists = true
		if s.expired(v) {
			expired = true
			return nil
		}
		// Values are only valid for the life of the transaction.
		out = append([]byte(nil), v[headerSize:]...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt get %s: %w", key, err)
	}

	if !exists {
		return nil, backend.ErrNotFound
	}
	if expired {
		return s.evictExpired(key)
	}

	return out, nil
}

// evictExpired re-reads key inside a write transaction and deletes it only if
// it is still expired there; a value rewritten since the read is returned.
func (s *Store) evictExpired(key []byte) ([]byte, error) {
	var (
		out   []byte
		found bool
	)
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get(key)
		if len(v) < headerSize {
			return nil
		}
		if s.expired(v) {
			return b.Delete(key)
		}
		found = true
		out = append([]byte(nil), v[headerSize:]...)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("bolt get %s: %w", key, err)
	}

	if !found {
		return nil, backend.ErrNotFound
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, segments []string) error {
	return s.delete([]byte(backend.JoinKey(segments)))
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep(context.Context) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)

		var expired [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if len(v) >= headerSize && s.expired(v) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}

		// Deleting while iterating skips entries, so keys are collected first.
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	return removed, err
}

func (s *Store) delete(key []byte) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete(key)
	}); err != nil {
		return fmt.Errorf("bolt delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) expired(v []byte) bool {
	expiresAt := int64(binary.BigEndian.Uint64(v[:headerSize]))
	return expiresAt > 0 && s.now().UnixNano() >= expiresAt
}
