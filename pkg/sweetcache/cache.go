// Package sweetcache is a small caching façade over a pluggable key-value backend.
//
// The Cache normalizes hierarchical keys, coerces expirations into TTLs and
// serializes values with a codec before handing them to the backend. It adds
// no locking of its own: it is as safe for concurrent use as its backend.
//
//	c := sweetcache.New(memory.New(memory.Config{Size: 1024}))
//	_ = c.Set(ctx, cachekey.Sequence("users.v2", user.ID), user, time.Hour)
//
//	var u User
//	err := c.Get(ctx, cachekey.Sequence("users.v2", user.ID), &u)
//	if errors.Is(err, sweetcache.ErrNotFound) { ... }
package sweetcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/cachekey"
	"github.com/IsaacDSC/sweetcache/pkg/codec"
	"github.com/IsaacDSC/sweetcache/pkg/ctxlogger"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"github.com/IsaacDSC/sweetcache/pkg/logs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound          = backend.ErrNotFound
	ErrEmptyKey          = cachekey.ErrEmptyKey
	ErrInvalidExpiration = expiry.ErrInvalidExpiration
	// ErrUnsupported is returned when the backend lacks an optional capability.
	ErrUnsupported = errors.New("sweetcache: operation not supported by backend")
	// ErrInvalidPrefix is returned when WithPrefix names no usable key segment.
	ErrInvalidPrefix = errors.New("sweetcache: invalid key prefix")
	// ErrDefaultType is returned by GetOrDefault when the default cannot be stored in the destination.
	ErrDefaultType = errors.New("sweetcache: default value not assignable to destination")
)

const tracerName = "github.com/IsaacDSC/sweetcache"

type Cache struct {
	backend   backend.Backend
	separator string
	prefix    string
	segPrefix []string
	prefixErr error
	codec     codec.Codec
	logger    *logs.Logger
	metrics   *Metrics
	now       func() time.Time
	tracer    trace.Tracer
}

type Option func(*Cache)

// WithSeparator sets the key separator. The default is ".".
func WithSeparator(sep string) Option {
	return func(c *Cache) {
		c.separator = sep
	}
}

// WithPrefix prepends prefix, split on the separator, to every key.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// WithCodec sets the value codec. The default is codec.JSON.
func WithCodec(cd codec.Codec) Option {
	return func(c *Cache) {
		c.codec = cd
	}
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(l *logs.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithMetrics records hits, misses and errors.
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithClock sets the time source absolute expirations are measured against.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New binds a cache to an already constructed backend. A prefix that
// normalizes to nothing makes every operation fail with ErrInvalidPrefix.
func New(b backend.Backend, opts ...Option) *Cache {
	c := &Cache{
		backend:   b,
		separator: cachekey.DefaultSeparator,
		codec:     codec.JSON,
		now:       time.Now,
		tracer:    otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.prefix != "" {
		segments, err := cachekey.Normalize(cachekey.Scalar(c.prefix), c.separator)
		if err != nil {
			c.prefixErr = fmt.Errorf("%w %q: %w", ErrInvalidPrefix, c.prefix, err)
		}
		c.segPrefix = segments
	}

	return c
}

// NewFromFactory builds the backend once from factory and options, then binds a cache to it.
// Option errors are reported before the factory runs.
func NewFromFactory(factory backend.Factory, bopts backend.Options, opts ...Option) (*Cache, error) {
	c := New(nil, opts...)
	if c.prefixErr != nil {
		return nil, c.prefixErr
	}

	b, err := factory(bopts)
	if err != nil {
		return nil, fmt.Errorf("sweetcache: build backend: %w", err)
	}

	c.backend = b
	return c, nil
}

// Backend returns the bound backend.
func (c *Cache) Backend() backend.Backend {
	return c.backend
}

// Separator returns the configured key separator.
func (c *Cache) Separator() string {
	return c.separator
}

// Close closes the backend when it holds resources.
func (c *Cache) Close() error {
	if closer, ok := c.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// IsAvailable checks the backend.
func (c *Cache) IsAvailable(ctx context.Context) bool {
	ok := c.backend.IsAvailable(ctx)
	if !ok {
		c.log(ctx).Warn("cache backend unavailable")
	}
	return ok
}

// Key returns the literal key parts address, prefix included.
func (c *Cache) Key(parts ...any) (string, error) {
	segments, err := c.segments(cachekey.Sequence(parts...))
	if err != nil {
		return "", err
	}
	return strings.Join(segments, c.separator), nil
}

// Set stores value under key. expires is anything expiry.Coerce accepts; nil never expires.
func (c *Cache) Set(ctx context.Context, key cachekey.Spec, value any, expires any) error {
	segments, err := c.segments(key)
	if err != nil {
		return err
	}

	ttl, err := expiry.Coerce(expires, c.now())
	if err != nil {
		return err
	}

	return c.set(ctx, segments, value, ttl)
}

// Get decodes the value stored under key into dst, which must be a non-nil pointer.
// A missing or expired value yields ErrNotFound.
func (c *Cache) Get(ctx context.Context, key cachekey.Spec, dst any) error {
	segments, err := c.segments(key)
	if err != nil {
		return err
	}

	if err := codec.CheckDestination(dst); err != nil {
		return err
	}

	return c.get(ctx, segments, dst)
}

// GetOrDefault is Get, except that a miss stores def into dst and returns nil.
// A nil def stores the zero value.
func (c *Cache) GetOrDefault(ctx context.Context, key cachekey.Spec, dst any, def any) error {
	err := c.Get(ctx, key, dst)
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	target := reflect.ValueOf(dst).Elem()
	if def == nil {
		target.SetZero()
		return nil
	}

	value := reflect.ValueOf(def)
	if !value.Type().AssignableTo(target.Type()) {
		return fmt.Errorf("%w: %T into %s", ErrDefaultType, def, target.Type())
	}

	target.Set(value)
	return nil
}

// Delete drops key. It needs a backend implementing backend.Deleter.
func (c *Cache) Delete(ctx context.Context, key cachekey.Spec) error {
	segments, err := c.segments(key)
	if err != nil {
		return err
	}

	deleter, ok := c.backend.(backend.Deleter)
	if !ok {
		return ErrUnsupported
	}

	if err := deleter.Delete(ctx, segments); err != nil {
		c.metrics.errorOn("delete")
		return fmt.Errorf("delete %s: %w", backend.JoinKey(segments), err)
	}

	return nil
}

// GetAs is Get for callers that prefer a typed return value.
func GetAs[T any](ctx context.Context, c *Cache, key cachekey.Spec) (T, error) {
	var out T
	if err := c.Get(ctx, key, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// GetOrDefaultAs returns def when key is missing.
func GetOrDefaultAs[T any](ctx context.Context, c *Cache, key cachekey.Spec, def T) (T, error) {
	out, err := GetAs[T](ctx, c, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return out, err
}

func (c *Cache) segments(key cachekey.Spec) ([]string, error) {
	if c.prefixErr != nil {
		return nil, c.prefixErr
	}

	segments, err := cachekey.Normalize(key, c.separator)
	if err != nil {
		return nil, err
	}

	if len(c.segPrefix) == 0 {
		return segments, nil
	}

	return append(append(make([]string, 0, len(c.segPrefix)+len(segments)), c.segPrefix...), segments...), nil
}

func (c *Cache) set(ctx context.Context, segments []string, value any, ttl expiry.TTL) error {
	key := backend.JoinKey(segments)
	ctx, span := c.tracer.Start(ctx, "sweetcache.Set", trace.WithAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.ttl", ttl.String()),
	))
	defer span.End()

	b, err := c.codec.Marshal(value)
	if err != nil {
		c.fail(span, "set", err)
		return fmt.Errorf("error marshalling value for key %s: %w", key, err)
	}

	if err := c.backend.Set(ctx, segments, b, ttl); err != nil {
		c.fail(span, "set", err)
		return fmt.Errorf("error setting value for key %s: %w", key, err)
	}

	c.log(ctx).Debug("cache set", "key", key, "ttl", ttl.String())
	return nil
}

func (c *Cache) get(ctx context.Context, segments []string, dst any) error {
	key := backend.JoinKey(segments)
	ctx, span := c.tracer.Start(ctx, "sweetcache.Get", trace.WithAttributes(
		attribute.String("cache.key", key),
	))
	defer span.End()

	b, err := c.backend.Get(ctx, segments)
	if errors.Is(err, backend.ErrNotFound) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		c.metrics.miss()
		c.log(ctx).Debug("cache miss", "key", key)
		return err
	}
	if err != nil {
		c.fail(span, "get", err)
		return fmt.Errorf("error getting value for key %s: %w", key, err)
	}

	if err := c.codec.Unmarshal(b, dst); err != nil {
		c.fail(span, "get", err)
		return fmt.Errorf("error unmarshalling value for key %s: %w", key, err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	c.metrics.hit()
	c.log(ctx).Debug("cache hit", "key", key)
	return nil
}

func (c *Cache) fail(span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.errorOn(op)
}

func (c *Cache) log(ctx context.Context) *logs.Logger {
	return ctxlogger.GetLogger(ctx, c.logger)
}
