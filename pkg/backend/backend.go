// Package backend defines the contract a key-value store implements to sit
// behind a sweetcache.Cache, plus helpers shared by the bundled backends.
//
// Backends receive already-normalized key segments and already-encoded
// values. Joining segments into a literal store key, storing with or without
// expiry and reporting misses as ErrNotFound is all a backend has to do.
package backend

import (
	"context"
	"errors"
	"strings"

	"github.com/IsaacDSC/sweetcache/pkg/expiry"
)

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -source=backend.go -destination=mockbackend/mock_backend.go -package=mockbackend

// ErrNotFound is returned by Get when no live value exists at a key, expired values included.
var ErrNotFound = errors.New("backend: not found")

// KeySeparator joins segments into the literal key backends store values under.
const KeySeparator = "."

type Backend interface {
	// IsAvailable checks the store. Unavailability is reported as false, never as a panic.
	IsAvailable(ctx context.Context) bool
	// Set stores value under segments, overwriting any previous value.
	Set(ctx context.Context, segments []string, value []byte, ttl expiry.TTL) error
	// Get returns the value last stored under segments or ErrNotFound.
	Get(ctx context.Context, segments []string) ([]byte, error)
}

// Deleter is implemented by backends that can drop a key. Deleting a missing key is not an error.
type Deleter interface {
	Delete(ctx context.Context, segments []string) error
}

// JoinKey builds the literal store key for segments.
func JoinKey(segments []string) string {
	return strings.Join(segments, KeySeparator)
}

// Sweeper is implemented by backends that keep expired entries until read
// and can drop them in bulk.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
