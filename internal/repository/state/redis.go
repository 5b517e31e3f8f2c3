package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

type redisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis stores documents as plain string values. A zero ttl keeps keys forever;
// otherwise every save refreshes the expiry.
func NewRedis(client *redis.Client, ttl time.Duration) Repository {
	return &redisRepo{client: client, ttl: ttl}
}

func (r *redisRepo) Load(ctx context.Context, namespace, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, stateKey(namespace, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *redisRepo) Save(ctx context.Context, namespace, key string, value []byte) error {
	if err := r.client.Set(ctx, stateKey(namespace, key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *redisRepo) Delete(ctx context.Context, namespace, key string) error {
	if err := r.client.Del(ctx, stateKey(namespace, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func stateKey(namespace, key string) string {
	return fmt.Sprintf("state:%s:%s", namespace, key)
}
