package setup

import (
	"fmt"

	"github.com/IsaacDSC/sweetcache/internal/cfg"
	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/backend/bolt"
	"github.com/IsaacDSC/sweetcache/pkg/backend/memcached"
	"github.com/IsaacDSC/sweetcache/pkg/backend/memory"
	"github.com/IsaacDSC/sweetcache/pkg/backend/mongo"
	"github.com/IsaacDSC/sweetcache/pkg/backend/redisbackend"
	"github.com/IsaacDSC/sweetcache/pkg/backend/rediscache"
	"github.com/IsaacDSC/sweetcache/pkg/codec"
	"github.com/IsaacDSC/sweetcache/pkg/logs"
	"github.com/IsaacDSC/sweetcache/pkg/sweetcache"
)

// BackendFactory maps CACHE_BACKEND to a factory and the options it reads.
func BackendFactory(c cfg.Config) (backend.Factory, backend.Options, error) {
	switch c.Cache.Backend {
	case cfg.BackendRedis:
		return redisbackend.NewFactory, backend.Options{"addr": c.Redis.CacheAddr, "db": c.Redis.DB}, nil
	case cfg.BackendRedisCache:
		return rediscache.NewFactory, backend.Options{"addr": c.Redis.CacheAddr, "db": c.Redis.DB}, nil
	case cfg.BackendMemcached:
		return memcached.NewFactory, backend.Options{"servers": c.Memcached.Servers}, nil
	case cfg.BackendMemory:
		return memory.NewFactory, backend.Options{"size": c.Memory.Size}, nil
	case cfg.BackendBolt:
		return bolt.NewFactory, backend.Options{"path": c.Bolt.Path, "bucket": c.Bolt.Bucket}, nil
	case cfg.BackendMongo:
		return mongo.NewFactory, backend.Options{
			"uri":        c.Mongo.URI,
			"database":   c.Mongo.Database,
			"collection": c.Mongo.Collection,
		}, nil
	case cfg.BackendDummy:
		return backend.NewDummy, backend.Options{}, nil
	default:
		return nil, nil, fmt.Errorf("setup: unknown backend %q", c.Cache.Backend)
	}
}

// NewCache builds the configured backend and binds a cache to it.
func NewCache(c cfg.Config, logger *logs.Logger, metrics *sweetcache.Metrics) (*sweetcache.Cache, error) {
	factory, opts, err := BackendFactory(c)
	if err != nil {
		return nil, err
	}

	cd, err := codec.ByName(c.Cache.Codec)
	if err != nil {
		return nil, err
	}

	return sweetcache.NewFromFactory(factory, opts,
		sweetcache.WithSeparator(c.Cache.Separator),
		sweetcache.WithPrefix(c.Cache.Prefix),
		sweetcache.WithCodec(cd),
		sweetcache.WithLogger(logger),
		sweetcache.WithMetrics(metrics),
	)
}
