// internal/redislock/lock_expiry_test.go
package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redispkg "tixhub/internal/pkg/redis"
)

func newExpiryFixture(t *testing.T) (*miniredis.Miniredis, *redispkg.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, redispkg.NewClientFromRedis(rdb)
}

// 持有者 A 崩溃从不释放；TTL 过期后 B 的 acquire 必须成功，
// 期间的互斥由 SET NX 保证。
func TestLock_ExpiryAllowsReacquire(t *testing.T) {
	mr, client := newExpiryFixture(t)
	ctx := context.Background()

	a := New(client, "event:e1:ticket:t1", WithTTL(time.Second))
	acquired, err := a.Acquire(ctx, false, 1)
	require.NoError(t, err)
	require.True(t, acquired)

	// 锁被 A 持有期间，B 拿不到
	b := New(client, "event:e1:ticket:t1", WithTTL(time.Second))
	acquired, err = b.Acquire(ctx, false, 1)
	require.NoError(t, err)
	assert.False(t, acquired)

	mr.FastForward(1100 * time.Millisecond)

	acquired, err = b.Acquire(ctx, false, 1)
	require.NoError(t, err)
	assert.True(t, acquired)
}

// A 过期后 B 重新获取；A 迟到的 release 必须是空操作，
// 不能删掉 B 的锁。
func TestLock_StaleReleaseDoesNotTouchNewOwner(t *testing.T) {
	mr, client := newExpiryFixture(t)
	ctx := context.Background()

	a := New(client, "event:e1:ticket:t1", WithTTL(time.Second))
	acquired, err := a.Acquire(ctx, false, 1)
	require.NoError(t, err)
	require.True(t, acquired)

	mr.FastForward(1100 * time.Millisecond)

	b := New(client, "event:e1:ticket:t1", WithTTL(time.Minute))
	acquired, err = b.Acquire(ctx, false, 1)
	require.NoError(t, err)
	require.True(t, acquired)

	released, err := a.Release(ctx)
	require.NoError(t, err)
	assert.False(t, released)

	held, err := client.GetClient().Get(ctx, b.Key()).Result()
	require.NoError(t, err)
	assert.Equal(t, b.Token(), held)

	released, err = b.Release(ctx)
	require.NoError(t, err)
	assert.True(t, released)

	exists, err := client.GetClient().Exists(ctx, b.Key()).Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

// 阻塞模式下 B 在重试循环里等到 A 的 TTL 过期。
func TestLock_BlockingAcquireWaitsForExpiry(t *testing.T) {
	mr, client := newExpiryFixture(t)
	ctx := context.Background()

	a := New(client, "event:e1:ticket:t1", WithTTL(50*time.Millisecond))
	acquired, err := a.Acquire(ctx, false, 1)
	require.NoError(t, err)
	require.True(t, acquired)

	// miniredis 不随真实时间推进 TTL，在后台推快时钟
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(30 * time.Millisecond)
		mr.FastForward(100 * time.Millisecond)
	}()

	b := New(client, "event:e1:ticket:t1", WithTTL(time.Second), WithRetryDelay(10*time.Millisecond))
	acquired, err = b.Acquire(ctx, true, 50)
	require.NoError(t, err)
	assert.True(t, acquired)
	<-done
}
