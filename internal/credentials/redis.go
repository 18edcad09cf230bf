package credentials

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"candidate-interview/internal/common/config"
	"candidate-interview/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "interview:credentials"

// RedisBackend stores each slot under "<prefix>:<slot>".
type RedisBackend struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisBackend(client redis.Cmdable, prefix string, ttl time.Duration) *RedisBackend {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisBackend) key(slot Slot) string {
	return fmt.Sprintf("%s:%s", r.prefix, slot)
}

func (r *RedisBackend) Get(ctx context.Context, slot Slot) (string, error) {
	val, err := r.client.Get(ctx, r.key(slot)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", slot, err)
	}
	return val, nil
}

func (r *RedisBackend) Set(ctx context.Context, slot Slot, value string) error {
	if err := r.client.Set(ctx, r.key(slot), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", slot, err)
	}
	return nil
}

func (r *RedisBackend) Clear(ctx context.Context, slot Slot) error {
	if err := r.client.Del(ctx, r.key(slot)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", slot, err)
	}
	return nil
}

// NewFromConfig builds the Store selected by the credentials section. rdb
// is only used by the redis backend.
func NewFromConfig(cfg config.CredentialsConfig, rdb redis.Cmdable, log logger.Logger) (*Store, error) {
	switch cfg.Backend {
	case "", config.BackendMemory:
		return NewMemoryStore(log), nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis credential backend requires a redis client")
		}
		ttl := time.Duration(cfg.TTL) * time.Second
		return NewStore(NewRedisBackend(rdb, cfg.KeyPrefix, ttl), log), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.Backend)
	}
}
