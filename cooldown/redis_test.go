package cooldown_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goliatone/go-dashboard/cooldown"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, period time.Duration) (*cooldown.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	db, err := cooldown.NewRedisClient(context.Background(), cooldown.RedisConfig{
		Addr:        mr.Addr(),
		DialTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return cooldown.NewRedis(db, period, "test:"), mr
}

func TestRedis_Acquire(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, time.Minute)

	ok, wait, err := store.Acquire(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, wait)
	assert.True(t, mr.Exists("test:a@example.com"))

	mr.FastForward(15 * time.Second)

	ok, wait, err = store.Acquire(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, float64(45*time.Second), float64(wait), float64(time.Second))

	mr.FastForward(46 * time.Second)

	ok, _, err = store.Acquire(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_Reset(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Minute)

	ok, _, err := store.Acquire(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Reset(ctx, "key"))

	ok, _, err = store.Acquire(ctx, "key")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedis_ConnectionError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	db := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = db.Close() })
	mr.Close()

	store := cooldown.NewRedis(db, time.Minute, "")
	_, _, err = store.Acquire(context.Background(), "key")
	assert.Error(t, err)
}

func TestNewRedisClient_PingFails(t *testing.T) {
	_, err := cooldown.NewRedisClient(context.Background(), cooldown.RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	assert.Error(t, err)
}
