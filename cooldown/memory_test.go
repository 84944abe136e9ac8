package cooldown_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-dashboard/cooldown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemory_Acquire(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := cooldown.NewMemory(time.Minute, cooldown.WithClock(clock.Now))

	ok, wait, err := store.Acquire(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, wait)

	clock.Advance(10 * time.Second)
	ok, wait, err = store.Acquire(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, float64(50*time.Second), float64(wait), float64(time.Second))

	t.Run("other keys are independent", func(t *testing.T) {
		ok, _, err := store.Acquire(ctx, "b@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("denied calls do not extend the wait", func(t *testing.T) {
		clock.Advance(20 * time.Second)
		ok, wait, err := store.Acquire(ctx, "a@example.com")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.InDelta(t, float64(30*time.Second), float64(wait), float64(time.Second))
	})

	t.Run("allowed again after the period", func(t *testing.T) {
		clock.Advance(31 * time.Second)
		ok, _, err := store.Acquire(ctx, "a@example.com")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestMemory_ZeroPeriodAlwaysAllows(t *testing.T) {
	store := cooldown.NewMemory(0)
	for range 3 {
		ok, wait, err := store.Acquire(context.Background(), "key")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, wait)
	}
	assert.Equal(t, 0, store.Len())
}

func TestMemory_SweepsIdleKeys(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := cooldown.NewMemory(time.Minute, cooldown.WithClock(clock.Now))

	_, _, _ = store.Acquire(ctx, "one")
	_, _, _ = store.Acquire(ctx, "two")
	assert.Equal(t, 2, store.Len())

	clock.Advance(3 * time.Minute)
	_, _, _ = store.Acquire(ctx, "three")
	assert.Equal(t, 1, store.Len())
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	store := cooldown.NewMemory(time.Minute, cooldown.WithClock(clock.Now))

	ok, _, err := store.Acquire(ctx, "a@example.com")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, store.Reset(ctx, "a@example.com"))
	require.NoError(t, store.Reset(ctx, "unknown"))

	ok, wait, err := store.Acquire(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, wait)
}
