package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "idempotency:"
	defaultTTL = 24 * time.Hour
)

type IdempotencyGuard struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewIdempotencyGuard(rdb *goredis.Client, ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &IdempotencyGuard{rdb: rdb, ttl: ttl}
}

func (g *IdempotencyGuard) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, keyPrefix+key, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx")
	}
	return ok, nil
}

// NoopGuard accepts every key.
type NoopGuard struct{}

func (NoopGuard) Claim(context.Context, string) (bool, error) { return true, nil }

func Connect(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis ping %s", addr)
	}
	return rdb, nil
}
