// internal/inventory/store_test.go
package inventory

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "inventory:event:e1:ticket:t1", Key("e1", "t1"))
	assert.Equal(t, "event:e1:ticket:t1", LockResource("e1", "t1"))
}

func TestParseKey(t *testing.T) {
	eventID, ticketTypeID, ok := ParseKey(Key("e1", "t1"))
	require.True(t, ok)
	assert.Equal(t, "e1", eventID)
	assert.Equal(t, "t1", ticketTypeID)

	_, _, ok = ParseKey("lock:event:e1:ticket:t1")
	assert.False(t, ok)
	_, _, ok = ParseKey("inventory:event:e1")
	assert.False(t, ok)
}

func TestStore_Initialize(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectSetNX("inventory:event:e1:ticket:t1", "100", 0).SetVal(true)

	created, err := store.Initialize(context.Background(), "e1", "t1", 100)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 已存在的计数器不会被重复初始化覆盖。
func TestStore_InitializeIdempotent(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectSetNX("inventory:event:e1:ticket:t1", "100", 0).SetVal(false)

	created, err := store.Initialize(context.Background(), "e1", "t1", 100)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Available(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").SetVal("42")

	available, err := store.Available(context.Background(), "e1", "t1")
	require.NoError(t, err)
	assert.Equal(t, 42, available)
}

func TestStore_AvailableNotInitialized(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").RedisNil()

	_, err := store.Available(context.Background(), "e1", "t1")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

// 计数器的值损坏时必须报错，绝不能猜一个值继续。
func TestStore_AvailableInvalidData(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").SetVal("not-a-number")

	_, err := store.Available(context.Background(), "e1", "t1")
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestStore_Reserve(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").SetVal("10")
	mock.ExpectDecrBy("inventory:event:e1:ticket:t1", 3).SetVal(7)

	res, err := store.Reserve(context.Background(), "e1", "t1", 3, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Reserved)
	assert.Equal(t, 7, res.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 库存不足时不发出 DECRBY，返回结构化的失败结果。
func TestStore_ReserveInsufficient(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").SetVal("2")

	res, err := store.Reserve(context.Background(), "e1", "t1", 5, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeInsufficient, res.Code)
	assert.Equal(t, 2, res.Available)
	assert.Equal(t, 5, res.Requested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 刚好等于剩余量的请求可以成功，扣到 0。
func TestStore_ReserveExact(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").SetVal("5")
	mock.ExpectDecrBy("inventory:event:e1:ticket:t1", 5).SetVal(0)

	res, err := store.Reserve(context.Background(), "e1", "t1", 5, "user-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Remaining)
}

func TestStore_ReserveNotInitialized(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").RedisNil()

	res, err := store.Reserve(context.Background(), "e1", "t1", 1, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeNotFound, res.Code)
}

func TestStore_ReserveInvalidData(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectGet("inventory:event:e1:ticket:t1").SetVal("garbage")

	res, err := store.Reserve(context.Background(), "e1", "t1", 1, "user-1")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, CodeInvalidData, res.Code)
}

func TestStore_Release(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectIncrBy("inventory:event:e1:ticket:t1", 3).SetVal(10)

	available, err := store.Release(context.Background(), "e1", "t1", 3, "booking_failed")
	require.NoError(t, err)
	assert.Equal(t, 10, available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Reconcile(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewStore(rdb)

	mock.ExpectSet("inventory:event:e1:ticket:t1", "77", 0).SetVal("OK")

	err := store.Reconcile(context.Background(), "e1", "t1", 77)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
