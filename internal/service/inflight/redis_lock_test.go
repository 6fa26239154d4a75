package inflight

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLock(t *testing.T) (*RedisLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	l := NewRedisLock(rdb, time.Minute)
	l.poll = 5 * time.Millisecond
	return l, mr
}

func TestNewRedisLock_NilClient(t *testing.T) {
	var l *RedisLock = NewRedisLock(nil, time.Second)
	assert.Nil(t, l)

	release, ok, err := l.Acquire(context.Background(), "7:42:3", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release()
}

func TestRedisLock_AcquireAndRelease(t *testing.T) {
	l, mr := newTestLock(t)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "7:42:3", 0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("inflight:analysis:7:42:3"))
	assert.Greater(t, mr.TTL("inflight:analysis:7:42:3"), time.Duration(0))

	_, ok, err = l.Acquire(ctx, "7:42:3", 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire while the first holds the lock")

	release()
	assert.False(t, mr.Exists("inflight:analysis:7:42:3"))

	release2, ok, err := l.Acquire(ctx, "7:42:3", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisLock_WaitsForHolder(t *testing.T) {
	l, _ := newTestLock(t)
	ctx := context.Background()

	release, ok, err := l.Acquire(ctx, "k", 0)
	require.NoError(t, err)
	require.True(t, ok)
	time.AfterFunc(30*time.Millisecond, release)

	release2, ok, err := l.Acquire(ctx, "k", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}

func TestRedisLock_ReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newTestLock(t)
	release, ok, err := l.Acquire(context.Background(), "k", 0)
	require.NoError(t, err)
	require.True(t, ok)

	// Lock expired and was taken by someone else.
	require.NoError(t, mr.Set("inflight:analysis:k", "other-holder"))
	release()
	got, err := mr.Get("inflight:analysis:k")
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRedisLock_RedisDown(t *testing.T) {
	l, mr := newTestLock(t)
	mr.Close()

	release, ok, err := l.Acquire(context.Background(), "k", 0)
	require.Error(t, err)
	assert.False(t, ok)
	assert.NotNil(t, release)
}

func TestRedisLock_ContextCancelled(t *testing.T) {
	l, _ := newTestLock(t)
	_, ok, err := l.Acquire(context.Background(), "k", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, ok, err = l.Acquire(ctx, "k", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
}
