package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heriman22/blog-main/internal/xerrors"
)

// scan batch size for Purge
const purgeScanCount = 256

// Redis is a Cache over a shared Redis. Keys are namespaced by prefix so
// the fetch and page caches can share one database.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if client == nil {
		panic("cache.NewRedis: client is nil")
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, xerrors.Wrapf(err, "redis get %s", r.key(key))
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(key), val, ttl).Err(); err != nil {
		return xerrors.Wrapf(err, "redis set %s", r.key(key))
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return xerrors.Wrap(err, "redis del")
	}
	return nil
}

// Purge deletes every key under the prefix using SCAN, never KEYS.
func (r *Redis) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", purgeScanCount).Result()
		if err != nil {
			return xerrors.Wrap(err, "redis scan")
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return xerrors.Wrap(err, "redis del")
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks the connection; used as a readiness probe.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return xerrors.Wrap(err, "redis ping")
	}
	return nil
}
