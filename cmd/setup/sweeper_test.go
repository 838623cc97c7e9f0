package setup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/backend/mockbackend"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

type sweepingBackend struct {
	*mockbackend.MockBackend
	*mockbackend.MockSweeper
}

func TestSweepExpired_RunsUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	sweeper := mockbackend.NewMockSweeper(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	sweeper.EXPECT().Sweep(gomock.Any()).DoAndReturn(func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("disk busy")
		}
		if calls == 3 {
			cancel()
		}
		return 2, nil
	}).MinTimes(3)

	b := sweepingBackend{MockBackend: mockbackend.NewMockBackend(ctrl), MockSweeper: sweeper}

	done := make(chan struct{})
	go func() {
		SweepExpired(ctx, b, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweepExpired_NotASweeper(t *testing.T) {
	done := make(chan struct{})
	go func() {
		SweepExpired(context.Background(), backend.Dummy{}, time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		assert.Fail(t, "expected immediate return for a backend without Sweep")
	}
}
