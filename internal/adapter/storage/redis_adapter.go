package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "storefront:"

type RedisAdapter struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisAdapter stores every key under prefix. A zero ttl keeps values forever.
func NewRedisAdapter(client *redis.Client, prefix string, ttl time.Duration) *RedisAdapter {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisAdapter{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
