package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/IsaacDSC/sweetcache/cmd/setup"
	"github.com/IsaacDSC/sweetcache/internal/cfg"
	"github.com/IsaacDSC/sweetcache/pkg/auth"
	"github.com/IsaacDSC/sweetcache/pkg/ctxlogger"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/IsaacDSC/sweetcache/pkg/logs"
	"github.com/IsaacDSC/sweetcache/pkg/sweetcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	conf, err := cfg.Load()
	if err != nil {
		logs.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	cfg.SetConfig(conf)

	logger := logs.New(
		logs.WithLevel(logs.ParseLevel(conf.Log.Level)),
		logs.WithJSONFormat(conf.Log.JSON),
	)
	logs.SetDefault(logger)

	if err := run(conf, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped")
}

func run(conf cfg.Config, logger *logs.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlogger.WithLogger(ctx, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metrics, err := sweetcache.NewMetrics(reg)
	if err != nil {
		return err
	}

	cache, err := setup.NewCache(conf, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			logger.Error("Error closing cache backend", "error", err)
		}
	}()

	if !cache.IsAvailable(ctx) {
		logger.Warn("Cache backend not reachable at startup", "backend", conf.Cache.Backend)
	}

	go setup.SweepExpired(ctx, cache.Backend(), conf.Server.SweepInterval)

	defaultTTL := expiry.Never
	if conf.Cache.DefaultTTL > 0 {
		defaultTTL = expiry.After(conf.Cache.DefaultTTL)
	}

	users, err := auth.ParseUsers(conf.Server.BasicAuth)
	if err != nil {
		return err
	}

	handler := setup.NewHandler(cache, defaultTTL, auth.NewBasicAuth(users), reg, logger)
	return setup.StartServer(ctx, conf.Server.HttpAddr, handler, logger)
}
