package checkpoint

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sgf_review/internal/adapters"
	errs "sgf_review/internal/errors"
)

const checkpointCollection = "checkpoints"

type mongoEntry struct {
	ID        string `bson:"_id"`
	Namespace string `bson:"namespace"`
	Entry     Entry  `bson:"entry"`
}

type MongoStore struct {
	adapter   *adapters.AdapterMongo
	coll      *mongo.Collection
	namespace string
}

func NewMongoStore(adapter *adapters.AdapterMongo, namespace string) *MongoStore {
	return &MongoStore{
		adapter:   adapter,
		coll:      adapter.Database.Collection(checkpointCollection),
		namespace: namespace,
	}
}

func (s *MongoStore) id(key string) string {
	return s.namespace + "/" + key
}

func (s *MongoStore) Load(ctx context.Context, key string) (Entry, error) {
	var doc mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": s.id(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, errs.ErrCheckpointMiss
	}
	if err != nil {
		return Entry{}, err
	}
	return doc.Entry, nil
}

func (s *MongoStore) Save(ctx context.Context, key string, e Entry) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": s.id(key)},
		bson.M{"$setOnInsert": bson.M{"namespace": s.namespace, "entry": e}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.adapter.Close(ctx)
}
