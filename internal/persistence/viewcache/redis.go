package viewcache

import (
	"context"

	"github.com/zeromicro/go-zero/core/stores/redis"
)

// RedisStore keeps entries as plain Redis strings without expiry.
type RedisStore struct {
	rds *redis.Redis
}

func NewRedisStore(rds *redis.Redis) *RedisStore {
	return &RedisStore{rds: rds}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.rds.GetCtx(ctx, key)
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, nil
	}
	return []byte(val), nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return r.rds.SetCtx(ctx, key, string(value))
}
