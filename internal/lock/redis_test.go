package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisForTest(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestRedisLocker_ExclusiveUntilRelease(t *testing.T) {
	rdb := redisForTest(t)
	l := NewRedisLocker(rdb, 5*time.Second, WithKeyPrefix("test:"+uuid.NewString()+":"))
	ctx := context.Background()

	release, err := l.Acquire(ctx, "booking:1:2024-01-10")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(waitCtx, "booking:1:2024-01-10")
	assert.ErrorIs(t, err, ErrNotAcquired)

	release()

	again, err := l.Acquire(ctx, "booking:1:2024-01-10")
	require.NoError(t, err)
	again()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	rdb := redisForTest(t)
	prefix := "test:" + uuid.NewString() + ":"
	l := NewRedisLocker(rdb, 50*time.Millisecond, WithKeyPrefix(prefix))
	ctx := context.Background()

	release, err := l.Acquire(ctx, "k")
	require.NoError(t, err)

	// Let the TTL lapse and have another holder take the key.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, rdb.Set(ctx, prefix+"k", "other", time.Second).Err())

	release()
	v, err := rdb.Get(ctx, prefix+"k").Result()
	require.NoError(t, err)
	assert.Equal(t, "other", v)
}
