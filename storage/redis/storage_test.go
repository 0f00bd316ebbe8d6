package redisdb

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomoweb/core"
)

func setup(t *testing.T, ttl time.Duration) (*DB, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	db := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "masomo:test", ttl)
	t.Cleanup(func() { _ = db.Close() })
	return db, mr
}

func TestBucket(t *testing.T) {
	ctx := context.Background()
	db, mr := setup(t, 0)
	alice, bob := db.Bucket("alice"), db.Bucket("bob")

	_, err := alice.Get(ctx, core.KeyToken)
	assert.Equal(t, core.ErrKeyNotFound, err)

	assert.NoError(t, alice.Set(ctx, core.KeyToken, "tok-a"))
	assert.NoError(t, alice.Set(ctx, core.KeyUserID, "1"))
	assert.NoError(t, alice.Set(ctx, core.KeySidebarOpen, "true"))
	assert.NoError(t, bob.Set(ctx, core.KeyToken, "tok-b"))

	assert.Equal(t, "tok-a", mr.HGet("masomo:test:alice", core.KeyToken))
	assert.Equal(t, "tok-b", mr.HGet("masomo:test:bob", core.KeyToken))

	val, err := alice.Get(ctx, core.KeyToken)
	assert.NoError(t, err)
	assert.Equal(t, "tok-a", val)

	assert.NoError(t, alice.Delete(ctx, core.KeyToken, core.KeyUserID))
	assert.NoError(t, alice.Delete(ctx))
	_, err = alice.Get(ctx, core.KeyToken)
	assert.Equal(t, core.ErrKeyNotFound, err)
	val, err = alice.Get(ctx, core.KeySidebarOpen)
	assert.NoError(t, err)
	assert.Equal(t, "true", val)

	assert.NoError(t, alice.Clear(ctx))
	assert.False(t, mr.Exists("masomo:test:alice"))
	assert.True(t, mr.Exists("masomo:test:bob"))
}

func TestBucket_ttl(t *testing.T) {
	ctx := context.Background()
	db, mr := setup(t, time.Hour)
	b := db.Bucket("alice")

	assert.NoError(t, b.Set(ctx, core.KeyToken, "tok"))
	assert.Equal(t, time.Hour, mr.TTL("masomo:test:alice"))

	mr.FastForward(2 * time.Hour)
	_, err := b.Get(ctx, core.KeyToken)
	assert.Equal(t, core.ErrKeyNotFound, err)
}

func TestBucket_unavailable(t *testing.T) {
	ctx := context.Background()
	db, mr := setup(t, 0)
	mr.Close()

	_, err := db.Bucket("alice").Get(ctx, core.KeyToken)
	assert.Error(t, err)
	assert.NotEqual(t, core.ErrKeyNotFound, err)
}

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()

	conf := &core.Config{}
	conf.Redis.Addr = mr.Addr()
	conf.Redis.Prefix = "p"
	db, err := Open(context.Background(), conf)
	if assert.NoError(t, err) {
		assert.NoError(t, db.Bucket("c").Set(context.Background(), core.KeyToken, "x"))
		assert.Equal(t, "x", mr.HGet("p:c", core.KeyToken))
		assert.NoError(t, db.Close())
	}
}

func TestBucket_closed(t *testing.T) {
	db, _ := setup(t, 0)
	assert.NoError(t, db.Close())

	_, err := db.Bucket("alice").Get(context.Background(), core.KeyToken)
	assert.True(t, core.IsShutdown(err), "err = %v", err)
}
