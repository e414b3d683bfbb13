package db

import (
	"context"
	"sync"

	"github.com/go-gorm/caches/v4"
)

// memoryCacher keeps marshaled query results in process memory. Suitable for
// single-instance deployments; multi-instance ones use the redis backend.
type memoryCacher struct {
	entries sync.Map
}

func (c *memoryCacher) Get(_ context.Context, key string, q *caches.Query[any]) (*caches.Query[any], error) {
	raw, ok := c.entries.Load(key)
	if !ok {
		return nil, nil
	}

	if err := q.Unmarshal(raw.([]byte)); err != nil {
		return nil, err
	}

	return q, nil
}

func (c *memoryCacher) Store(_ context.Context, key string, val *caches.Query[any]) error {
	raw, err := val.Marshal()
	if err != nil {
		return err
	}

	c.entries.Store(key, raw)
	return nil
}

func (c *memoryCacher) Invalidate(_ context.Context) error {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
	return nil
}
