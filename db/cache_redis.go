package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gorm/caches/v4"
	"github.com/redis/go-redis/v9"
)

const redisCacheTTL = 5 * time.Minute

// redisCacher backs the query cache with redis so cached results are shared
// and invalidated across instances.
type redisCacher struct {
	client *redis.Client
}

func (c *redisCacher) Get(ctx context.Context, key string, q *caches.Query[any]) (*caches.Query[any], error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := q.Unmarshal([]byte(raw)); err != nil {
		return nil, err
	}

	return q, nil
}

func (c *redisCacher) Store(ctx context.Context, key string, val *caches.Query[any]) error {
	raw, err := val.Marshal()
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, raw, redisCacheTTL).Err()
}

func (c *redisCacher) Invalidate(ctx context.Context) error {
	var (
		cursor uint64
		keys   []string
	)

	pattern := fmt.Sprintf("%s*", caches.IdentifierPrefix)
	for {
		batch, next, err := c.client.Scan(ctx, cursor, pattern, 0).Result()
		if err != nil {
			return err
		}

		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}

	return nil
}
