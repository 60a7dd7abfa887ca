package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/YuminosukeSato/catnb/pkg/errors"
)

// Redis stores entries as plain string keys, optionally expiring after ttl.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to redisURL and verifies the connection with PING.
func NewRedis(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid Redis URL")
	}
	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "Redis connection failed")
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := checkKey("store.Put", key); err != nil {
		return err
	}
	return errors.Wrap(r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(), "store: redis set")
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := checkKey("store.Get", key); err != nil {
		return nil, false, err
	}
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "store: redis get")
	}
	return data, true, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := checkKey("store.Delete", key); err != nil {
		return err
	}
	return errors.Wrap(r.client.Del(ctx, r.prefix+key).Err(), "store: redis del")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
