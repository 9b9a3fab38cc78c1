// internal/redislock/lock_test.go
package redislock

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redispkg "tixhub/internal/pkg/redis"
)

// releaseSha 是注册表通过 Script.Run 优先执行的 EVALSHA 摘要。
var releaseSha = redis.NewScript(releaseScript).Hash()

func newMockLock(resource string, opts ...Option) (*Lock, redismock.ClientMock) {
	rdb, mock := redismock.NewClientMock()
	return New(redispkg.NewClientFromRedis(rdb), resource, opts...), mock
}

func TestLock_Acquire(t *testing.T) {
	lock, mock := newMockLock("event:e1:ticket:t1", WithTTL(5*time.Second))

	assert.Equal(t, "lock:event:e1:ticket:t1", lock.Key())

	mock.ExpectSetNX(lock.Key(), lock.Token(), 5*time.Second).SetVal(true)

	acquired, err := lock.Acquire(context.Background(), false, 1)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLock_AcquireNonBlockingContended(t *testing.T) {
	lock, mock := newMockLock("event:e1:ticket:t1")

	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(false)

	acquired, err := lock.Acquire(context.Background(), false, 10)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLock_AcquireBlockingRetriesThenSucceeds(t *testing.T) {
	lock, mock := newMockLock("event:e1:ticket:t1", WithRetryDelay(time.Millisecond))

	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(false)
	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(false)
	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(true)

	acquired, err := lock.Acquire(context.Background(), true, 5)
	require.NoError(t, err)
	assert.True(t, acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLock_AcquireBlockingExhaustsRetries(t *testing.T) {
	lock, mock := newMockLock("event:e1:ticket:t1", WithRetryDelay(time.Millisecond))

	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(false)
	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(false)

	acquired, err := lock.Acquire(context.Background(), true, 2)
	require.NoError(t, err)
	assert.False(t, acquired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLock_Release(t *testing.T) {
	lock, mock := newMockLock("event:e1:ticket:t1")

	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(true)
	mock.ExpectEvalSha(releaseSha, []string{lock.Key()}, lock.Token()).SetVal(int64(1))

	acquired, err := lock.Acquire(context.Background(), false, 1)
	require.NoError(t, err)
	require.True(t, acquired)

	released, err := lock.Release(context.Background())
	require.NoError(t, err)
	assert.True(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 锁过期后被其他 owner 重新获取，compare-and-delete 必须拒绝删除。
func TestLock_ReleaseNotOwned(t *testing.T) {
	lock, mock := newMockLock("event:e1:ticket:t1")

	mock.ExpectSetNX(lock.Key(), lock.Token(), DefaultTTL).SetVal(true)
	mock.ExpectEvalSha(releaseSha, []string{lock.Key()}, lock.Token()).SetVal(int64(0))

	acquired, err := lock.Acquire(context.Background(), false, 1)
	require.NoError(t, err)
	require.True(t, acquired)

	released, err := lock.Release(context.Background())
	require.NoError(t, err)
	assert.False(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 从未成功获取的锁实例，Release 不发出任何 Redis 命令。
func TestLock_ReleaseWithoutAcquire(t *testing.T) {
	lock, mock := newMockLock("event:e1:ticket:t1")

	released, err := lock.Release(context.Background())
	require.NoError(t, err)
	assert.False(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 两个实例各自持有独立的 token，释放互不影响。
func TestLock_DistinctTokens(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	client := redispkg.NewClientFromRedis(rdb)
	a := New(client, "event:e1:ticket:t1")
	b := New(client, "event:e1:ticket:t1")
	assert.NotEqual(t, a.Token(), b.Token())
	assert.Equal(t, a.Key(), b.Key())
}
