package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON c 为 nil 时直接回源（未配置 redis）
func GetOrLoadJSON[T any](
	c *Cache,
	ctx context.Context,
	key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if c == nil {
		return load(ctx)
	}
	var out T
	b, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, e := load(ctx)
		if e != nil {
			return nil, e
		}
		return json.Marshal(v)
	})
	if err != nil {
		return out, err
	}
	if e := json.Unmarshal(b, &out); e != nil {
		return out, e
	}
	return out, nil
}
