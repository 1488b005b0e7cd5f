package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"sgf_review/internal/adapters"
	errs "sgf_review/internal/errors"
)

type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type RedisStore struct {
	adapter   *adapters.AdapterRedis
	client    redisClient
	namespace string
	codec     Codec
}

// NewRedisStore expects an initialized adapter.
func NewRedisStore(adapter *adapters.AdapterRedis, namespace string, codec Codec) *RedisStore {
	return &RedisStore{adapter: adapter, client: adapter.GetClient(), namespace: namespace, codec: codec}
}

func (s *RedisStore) key(key string) string {
	return "checkpoint:" + s.namespace + ":" + key
}

func (s *RedisStore) Load(ctx context.Context, key string) (Entry, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, errs.ErrCheckpointMiss
	}
	if err != nil {
		return Entry{}, err
	}
	return decode(s.codec, data)
}

// Save replaces any earlier entry: it only runs after a fresh search.
func (s *RedisStore) Save(ctx context.Context, key string, e Entry) error {
	data, err := encode(s.codec, e)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, 0).Err()
}

func (s *RedisStore) Close(ctx context.Context) error {
	if s.adapter == nil {
		return nil
	}
	return s.adapter.Close(ctx)
}
