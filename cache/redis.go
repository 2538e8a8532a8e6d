package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/room4-2/FrontDesk/domain"
)

const keyPrefix = "course:"

// RedisBackend shares cached courses across processes. Expiry is left to Redis.
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (domain.Course, bool, error) {
	raw, err := b.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Course{}, false, nil
	}
	if err != nil {
		return domain.Course{}, false, err
	}

	var c domain.Course
	if err := sonic.Unmarshal(raw, &c); err != nil {
		return domain.Course{}, false, fmt.Errorf("decode cached course %s: %w", key, err)
	}
	return c, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key string, c domain.Course, ttl time.Duration) error {
	raw, err := sonic.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode course %s: %w", key, err)
	}
	return b.client.Set(ctx, keyPrefix+key, raw, ttl).Err()
}

func (b *RedisBackend) Purge(ctx context.Context) error {
	iter := b.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}
