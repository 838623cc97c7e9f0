package cfg

import (
	"fmt"
	"sync"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/cachekey"
	"github.com/IsaacDSC/sweetcache/pkg/codec"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BackendRedis      = "redis"
	BackendRedisCache = "rediscache"
	BackendMemcached  = "memcached"
	BackendMemory     = "memory"
	BackendBolt       = "bolt"
	BackendMongo      = "mongo"
	BackendDummy      = "dummy"
)

type Cache struct {
	Backend    string        `env:"CACHE_BACKEND" env-default:"memory"`
	Separator  string        `env:"CACHE_SEPARATOR" env-default:"."`
	Prefix     string        `env:"CACHE_PREFIX"`
	Codec      string        `env:"CACHE_CODEC" env-default:"json"`
	DefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL" env-default:"0s"`
}

type Redis struct {
	CacheAddr string `env:"CACHE_ADDR" env-default:"localhost:6379"`
	DB        int    `env:"CACHE_DB" env-default:"0"`
}

type Memcached struct {
	Servers []string `env:"MEMCACHED_SERVERS" env-default:"localhost:11211" env-separator:","`
}

type Memory struct {
	Size int `env:"MEMORY_SIZE" env-default:"4096"`
}

type Bolt struct {
	Path   string `env:"BOLT_PATH" env-default:"sweetcache.db"`
	Bucket string `env:"BOLT_BUCKET" env-default:"sweetcache"`
}

type Mongo struct {
	URI        string `env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database   string `env:"MONGO_DATABASE" env-default:"sweetcache"`
	Collection string `env:"MONGO_COLLECTION" env-default:"cache_entries"`
}

type Server struct {
	HttpAddr      string        `env:"HTTP_ADDR" env-default:":8080"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" env-default:"1m"`
	// BasicAuth is "user:password[,user:password]"; empty leaves the API open.
	BasicAuth string `env:"HTTP_BASIC_AUTH"`
}

type Log struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	JSON  bool   `env:"LOG_JSON" env-default:"false"`
}

type Config struct {
	Cache     Cache
	Redis     Redis
	Memcached Memcached
	Memory    Memory
	Bolt      Bolt
	Mongo     Mongo
	Server    Server
	Log       Log
}

var (
	mu     sync.Mutex
	cfg    Config
	loaded bool
)

// Load reads the environment into a fresh Config.
func Load() (Config, error) {
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return Config{}, fmt.Errorf("cfg: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Get returns the process config, reading the environment on first use.
func Get() Config {
	mu.Lock()
	defer mu.Unlock()

	if !loaded {
		c, err := Load()
		if err != nil {
			panic(err)
		}
		cfg = c
		loaded = true
	}

	return cfg
}

func SetConfig(c Config) {
	mu.Lock()
	defer mu.Unlock()
	cfg = c
	loaded = true
}

func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendRedis, BackendRedisCache, BackendMemcached, BackendMemory, BackendBolt, BackendMongo, BackendDummy:
	default:
		return fmt.Errorf("cfg: unknown CACHE_BACKEND %q", c.Cache.Backend)
	}

	if c.Cache.Separator == "" {
		return fmt.Errorf("cfg: CACHE_SEPARATOR must not be empty")
	}

	if c.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cfg: CACHE_DEFAULT_TTL must not be negative")
	}

	if _, err := codec.ByName(c.Cache.Codec); err != nil {
		return fmt.Errorf("cfg: CACHE_CODEC: %w", err)
	}

	if c.Cache.Prefix != "" {
		if _, err := cachekey.Normalize(cachekey.Scalar(c.Cache.Prefix), c.Cache.Separator); err != nil {
			return fmt.Errorf("cfg: CACHE_PREFIX %q: %w", c.Cache.Prefix, err)
		}
	}

	return nil
}
