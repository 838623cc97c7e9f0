package ctxlogger

import (
	"context"

	"github.com/IsaacDSC/sweetcache/pkg/logs"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *logs.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger returns the logger stored in ctx, or fallback when ctx carries none.
// A nil fallback means logs.Default().
func GetLogger(ctx context.Context, fallback ...*logs.Logger) *logs.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*logs.Logger); ok && logger != nil {
		return logger
	}

	if len(fallback) > 0 && fallback[0] != nil {
		return fallback[0]
	}

	return logs.Default()
}
