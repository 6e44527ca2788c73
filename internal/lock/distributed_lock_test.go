package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestAcquireRelease(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	first := NewDistributedLock(client, "lock:migrate", time.Minute)
	second := NewDistributedLock(client, "lock:migrate", time.Minute)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, second.Release(ctx), ErrLockNotHeld)
	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireWait_TimesOut(t *testing.T) {
	client, _ := newClient(t)

	holder := NewDistributedLock(client, "lock:migrate", time.Minute)
	ok, err := holder.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = NewDistributedLock(client, "lock:migrate", time.Minute).AcquireWait(ctx, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}

func TestAcquireWait_AfterExpiry(t *testing.T) {
	client, mr := newClient(t)

	holder := NewDistributedLock(client, "lock:migrate", time.Second)
	_, err := holder.Acquire(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, NewDistributedLock(client, "lock:migrate", time.Minute).AcquireWait(ctx, 10*time.Millisecond))
}
