package setup

import (
	"context"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/ctxlogger"
)

// SweepExpired drops expired entries every interval until ctx is done.
// Backends that do not implement backend.Sweeper expire entries on their own
// and return immediately.
func SweepExpired(ctx context.Context, b backend.Backend, interval time.Duration) {
	sweeper, ok := b.(backend.Sweeper)
	if !ok || interval <= 0 {
		return
	}

	l := ctxlogger.GetLogger(ctx)
	trigger := time.NewTicker(interval)
	defer trigger.Stop()

	for {
		select {
		case <-trigger.C:
			removed, err := sweeper.Sweep(ctx)
			if err != nil {
				l.Error("Error sweeping expired cache entries", "error", err)
				continue
			}

			l.Debug("Swept expired cache entries", "removed", removed)
		case <-ctx.Done():
			return
		}
	}
}
