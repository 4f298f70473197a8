package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Store keeps one document per key, with the key as _id.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewStore(coll *mongo.Collection) *Store {
	if coll == nil {
		panic("mongo: nil collection")
	}
	return &Store{coll: coll, now: time.Now}
}

// NewStoreFromConfig uses the database and collection named in cfg.
func NewStoreFromConfig(client *mongo.Client, cfg Config) *Store {
	return NewStore(client.Database(cfg.Database).Collection(cfg.Collection))
}

// Get returns nil, nil when no document has key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if doc.Value == nil {
		return []byte{}, nil
	}
	return doc.Value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	doc := kvDocument{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: key}}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: key}})
	return err
}
