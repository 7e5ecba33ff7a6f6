package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joripage/crossbook/pkg/orderbook"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "crossbook:active_orders"

// RedisStore keeps the active orders as a list of JSON records under one key.
// The list is replaced inside MULTI/EXEC so readers see either snapshot.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) LoadActiveOrders(ctx context.Context) ([]orderbook.Order, error) {
	values, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(values))
	for i, v := range values {
		var r Record
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("%w: %s[%d]: %w", errCorruptRecord, s.key, i, err)
		}
		records = append(records, r)
	}
	return ToOrders(records)
}

func (s *RedisStore) PersistActiveOrders(ctx context.Context, orders []orderbook.Order) error {
	records := FromOrders(orders)
	values := make([]interface{}, 0, len(records))
	for _, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.RPush(ctx, s.key, values...)
		}
		return nil
	})
	return err
}
