package persistence

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/joripage/crossbook/pkg/orderbook"
)

// keys: o:<8-byte position>
var orderPrefix = []byte("o:")

func orderKey(position int) []byte {
	key := make([]byte, len(orderPrefix)+8)
	copy(key, orderPrefix)
	binary.BigEndian.PutUint64(key[len(orderPrefix):], uint64(position))
	return key
}

func keyUpperBound(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

// PebbleStore keeps one key per active order in an embedded pebble database.
// A persist drops the previous range and writes the new one in a single
// synced batch.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

func (s *PebbleStore) LoadActiveOrders(ctx context.Context) ([]orderbook.Order, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: orderPrefix,
		UpperBound: keyUpperBound(orderPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var records []Record
	for iter.First(); iter.Valid(); iter.Next() {
		var r Record
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return nil, fmt.Errorf("%w: key %x: %w", errCorruptRecord, iter.Key(), err)
		}
		records = append(records, r)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return ToOrders(records)
}

func (s *PebbleStore) PersistActiveOrders(ctx context.Context, orders []orderbook.Order) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.DeleteRange(orderPrefix, keyUpperBound(orderPrefix), nil); err != nil {
		return err
	}
	for _, r := range FromOrders(orders) {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := batch.Set(orderKey(r.Position), data, nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}
