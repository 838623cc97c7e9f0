// Package mongo stores cache entries as documents in a MongoDB collection.
//
// Expiring documents carry an expiresAt field covered by a TTL index. The
// server's TTL monitor only runs about once a minute, so Get also checks
// expiresAt itself.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IsaacDSC/sweetcache/pkg/backend"
	"github.com/IsaacDSC/sweetcache/pkg/ctxlogger"
	"github.com/IsaacDSC/sweetcache/pkg/expiry"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	DefaultDatabase   = "sweetcache"
	DefaultCollection = "cache_entries"
)

type Entry struct {
	Key       string     `bson:"_id"`
	Value     []byte     `bson:"value"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
	UpdatedAt time.Time  `bson:"updatedAt"`
}

type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	now        func() time.Time
	owned      bool
}

var (
	_ backend.Backend = (*Store)(nil)
	_ backend.Deleter = (*Store)(nil)
)

// New uses collection on an already connected client and ensures its TTL index.
func New(ctx context.Context, client *mongo.Client, database, collection string) (*Store, error) {
	coll := client.Database(database).Collection(collection)

	if _, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		return nil, fmt.Errorf("mongo backend: create ttl index: %w", err)
	}

	return &Store{client: client, collection: coll, now: time.Now}, nil
}

// NewFactory connects using the "uri", "database", "collection" and "timeout" options.
func NewFactory(opts backend.Options) (backend.Backend, error) {
	uri, err := opts.String("uri", "mongodb://localhost:27017")
	if err != nil {
		return nil, err
	}
	database, err := opts.String("database", DefaultDatabase)
	if err != nil {
		return nil, err
	}
	collection, err := opts.String("collection", DefaultCollection)
	if err != nil {
		return nil, err
	}
	timeout, err := opts.Duration("timeout", 5*time.Second)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo backend: connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := New(ctx, client, database, collection)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	s.owned = true
	return s, nil
}

func (s *Store) IsAvailable(ctx context.Context) bool {
	return s.client.Ping(ctx, readpref.Primary()) == nil
}

func (s *Store) Set(ctx context.Context, segments []string, value []byte, ttl expiry.TTL) error {
	key := backend.JoinKey(segments)
	if ttl.Elapsed() {
		return s.Delete(ctx, segments)
	}

	now := s.now()
	entry := Entry{Key: key, Value: value, UpdatedAt: now}
	if deadline, ok := ttl.Deadline(now); ok {
		entry.ExpiresAt = &deadline
	}

	filter := bson.D{{Key: "_id", Value: key}}
	if _, err := s.collection.ReplaceOne(ctx, filter, entry, options.Replace().SetUpsert(true)); err != nil {
		ctxlogger.GetLogger(ctx).Error("Error on upsert cache entry", "key", key, "error", err)
		return fmt.Errorf("mongo set %s: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, segments []string) ([]byte, error) {
	key := backend.JoinKey(segments)
	filter := bson.D{{Key: "_id", Value: key}}

	var entry Entry
	if err := s.collection.FindOne(ctx, filter).Decode(&entry); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, backend.ErrNotFound
		}
		return nil, fmt.Errorf("mongo get %s: %w", key, err)
	}

	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(s.now()) {
		return nil, backend.ErrNotFound
	}

	return entry.Value, nil
}

func (s *Store) Delete(ctx context.Context, segments []string) error {
	key := backend.JoinKey(segments)
	if _, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", key, err)
	}
	return nil
}

// Close disconnects the client when the Store connected it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(context.Background())
}
