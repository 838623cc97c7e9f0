// Package cacheweb exposes a sweetcache.Cache over HTTP.
package cacheweb

import (
	"context"
	"errors"
	"net/http"

	"github.com/IsaacDSC/sweetcache/pkg/cachekey"
	"github.com/IsaacDSC/sweetcache/pkg/ctxlogger"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/IsaacDSC/sweetcache/pkg/httpadapter"
	"github.com/IsaacDSC/sweetcache/pkg/sweetcache"
)

type Cache interface {
	IsAvailable(ctx context.Context) bool
	Set(ctx context.Context, key cachekey.Spec, value any, expires any) error
	Get(ctx context.Context, key cachekey.Spec, dst any) error
	Delete(ctx context.Context, key cachekey.Spec) error
}

var _ Cache = (*sweetcache.Cache)(nil)

// Routes returns every route: the health check plus ValueRoutes.
func Routes(cache Cache, defaultTTL expiry.TTL) []httpadapter.HttpHandle {
	return append([]httpadapter.HttpHandle{GetHealthCheckHandler(cache)}, ValueRoutes(cache, defaultTTL)...)
}

// ValueRoutes returns the routes reading and writing cached values.
// defaultTTL applies to writes without a ttl query parameter.
func ValueRoutes(cache Cache, defaultTTL expiry.TTL) []httpadapter.HttpHandle {
	return []httpadapter.HttpHandle{
		GetValue(cache),
		PutValue(cache, defaultTTL),
		DeleteValue(cache),
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		ctxlogger.GetLogger(r.Context()).Error("cache request failed", "error", err)
	}
	http.Error(w, err.Error(), status)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, sweetcache.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sweetcache.ErrEmptyKey),
		errors.Is(err, cachekey.ErrInvalidScalar),
		errors.Is(err, sweetcache.ErrInvalidExpiration),
		errors.Is(err, errInvalidTTL):
		return http.StatusBadRequest
	case errors.Is(err, sweetcache.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
