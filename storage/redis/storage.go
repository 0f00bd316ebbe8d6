package redisdb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/masomoweb/core"
)

// DB keeps each client's entries in a Redis hash named "<prefix>:<clientID>".
type DB struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // refreshed on every write; 0 keeps entries forever
}

type bucket struct {
	db  *DB
	key string
}

var _ core.StorageBackend = (*DB)(nil)

// Open connects to the Redis server configured in `conf` and waits for it to be ready.
func Open(ctx context.Context, conf *core.Config) (*DB, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client, conf.Redis.Prefix, conf.Redis.TTL), nil
}

func New(client *redis.Client, prefix string, ttl time.Duration) *DB {
	return &DB{client: client, prefix: prefix, ttl: ttl}
}

// ping waits for Redis to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *redis.Client) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx).Err(); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "redis ping")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "redis ping timeout")
}

func (db *DB) Bucket(clientID string) core.Storage {
	key := clientID
	if db.prefix != "" {
		key = db.prefix + ":" + clientID
	}
	return &bucket{db: db, key: key}
}

func (db *DB) Close() error {
	return db.client.Close()
}

func (b *bucket) Get(ctx context.Context, key string) (string, error) {
	val, err := b.db.client.HGet(ctx, b.key, key).Result()
	if err == redis.Nil {
		return "", core.ErrKeyNotFound
	}
	if err != nil {
		return "", wrap(err, "redis hget "+key)
	}
	return val, nil
}

func (b *bucket) Set(ctx context.Context, key, value string) error {
	_, err := b.db.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, b.key, key, value)
		if b.db.ttl > 0 {
			pipe.Expire(ctx, b.key, b.db.ttl)
		}
		return nil
	})
	return wrap(err, "redis hset "+key)
}

func (b *bucket) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrap(b.db.client.HDel(ctx, b.key, keys...).Err(), "redis hdel")
}

func (b *bucket) Clear(ctx context.Context) error {
	return wrap(b.db.client.Del(ctx, b.key).Err(), "redis del")
}

// wrap annotates `err`. Operations on a closed client are shutdown errors.
func wrap(err error, msg string) error {
	if err == redis.ErrClosed {
		return core.NewShutdownError(msg + ": redis client closed")
	}
	return errors.Wrap(err, msg)
}
