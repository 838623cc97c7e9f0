package setup

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/IsaacDSC/sweetcache/internal/cacheweb"
	"github.com/IsaacDSC/sweetcache/pkg/auth"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/IsaacDSC/sweetcache/pkg/httpadapter"
	"github.com/IsaacDSC/sweetcache/pkg/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// NewHandler mounts the cache routes and /metrics behind the logger middleware.
// Cache reads and writes require basic auth when users are configured; ping
// and metrics stay open.
func NewHandler(cache cacheweb.Cache, defaultTTL expiry.TTL, basic *auth.BasicAuth, gatherer prometheus.Gatherer, logger *logs.Logger) http.Handler {
	mux := http.NewServeMux()
	httpadapter.Register(mux, cacheweb.GetHealthCheckHandler(cache))
	for _, route := range cacheweb.ValueRoutes(cache, defaultTTL) {
		route.Handler = basic.Middleware(route.Handler)
		httpadapter.Register(mux, route)
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return LoggerMiddleware(logger, mux)
}

// StartServer serves handler on addr until ctx is done, then drains in-flight requests.
func StartServer(ctx context.Context, addr string, handler http.Handler, logger *logs.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
