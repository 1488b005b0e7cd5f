package checkpoint

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"sgf_review/internal/adapters"
	errs "sgf_review/internal/errors"
)

type BadgerStore struct {
	adapter   *adapters.AdapterBadger
	namespace string
	codec     Codec
}

func NewBadgerStore(adapter *adapters.AdapterBadger, namespace string, codec Codec) *BadgerStore {
	return &BadgerStore{adapter: adapter, namespace: namespace, codec: codec}
}

func (s *BadgerStore) key(key string) []byte {
	return []byte(s.namespace + "/" + key)
}

func (s *BadgerStore) Load(ctx context.Context, key string) (Entry, error) {
	var data []byte
	err := s.adapter.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, errs.ErrCheckpointMiss
	}
	if err != nil {
		return Entry{}, err
	}
	return decode(s.codec, data)
}

func (s *BadgerStore) Save(ctx context.Context, key string, e Entry) error {
	data, err := encode(s.codec, e)
	if err != nil {
		return err
	}
	return s.adapter.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(key), data)
	})
}

func (s *BadgerStore) Close(ctx context.Context) error {
	return s.adapter.Close(ctx)
}
