package backend

import (
	"context"

	"github.com/IsaacDSC/sweetcache/pkg/expiry"
)

// Dummy is a backend that stores nothing. It is always available and every Get misses.
type Dummy struct{}

var (
	_ Backend = Dummy{}
	_ Deleter = Dummy{}
)

// NewDummy is a Factory for Dummy. It ignores its options.
func NewDummy(Options) (Backend, error) {
	return Dummy{}, nil
}

func (Dummy) IsAvailable(context.Context) bool { return true }

func (Dummy) Set(context.Context, []string, []byte, expiry.TTL) error { return nil }

func (Dummy) Get(context.Context, []string) ([]byte, error) { return nil, ErrNotFound }

func (Dummy) Delete(context.Context, []string) error { return nil }
