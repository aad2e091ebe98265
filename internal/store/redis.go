package store

import (
	"context"
	"errors"

	redis "github.com/redis/go-redis/v9"
)

// Redis stores values as plain string keys under an optional prefix.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisWithClient wraps an existing client, usually the one shared with
// the event broker.
func NewRedisWithClient(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, prefix: "visitroute:"}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	return r.rdb.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *Redis) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }
