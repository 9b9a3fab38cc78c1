// internal/task/queue_test.go
package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Enqueue(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	queue := NewQueue(rdb)

	// 任务 ID 带提交时间戳，无法精确预期，用正则匹配入队的内容。
	mock.Regexp().ExpectLPush(QueueKey, `"task_id":"send_email:\d+"`).SetVal(1)

	taskID, err := queue.Enqueue(context.Background(), "send_email", map[string]string{"to": "a@b.c"})
	require.NoError(t, err)
	assert.Contains(t, taskID, "send_email:")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueue_Dequeue(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	queue := NewQueue(rdb)

	stored := Task{
		ID:        "send_email:123",
		Name:      "send_email",
		Payload:   json.RawMessage(`{"to":"a@b.c"}`),
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	encoded, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectBRPop(5*time.Second, QueueKey).SetVal([]string{QueueKey, string(encoded)})

	got, err := queue.Dequeue(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "send_email:123", got.ID)
	assert.Equal(t, "send_email", got.Name)
	assert.JSONEq(t, `{"to":"a@b.c"}`, string(got.Payload))
}

// 超时窗口内没有任务时返回 (nil, nil)，不是错误。
func TestQueue_DequeueTimeout(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	queue := NewQueue(rdb)

	mock.ExpectBRPop(5*time.Second, QueueKey).RedisNil()

	got, err := queue.Dequeue(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_Result(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	queue := NewQueue(rdb)

	stored := Result{
		TaskID:      "send_email:123",
		Status:      StatusCompleted,
		Result:      json.RawMessage(`{"status":"email_sent"}`),
		CompletedAt: time.Now().UTC(),
	}
	encoded, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectGet(ResultPrefix + "send_email:123").SetVal(string(encoded))

	got, err := queue.Result(context.Background(), "send_email:123")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.JSONEq(t, `{"status":"email_sent"}`, string(got.Result))
}

// TTL 过期后结果消失，查询方必须能区分 "没有结果" 和存储故障。
func TestQueue_ResultExpired(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	queue := NewQueue(rdb)

	mock.ExpectGet(ResultPrefix + "send_email:123").RedisNil()

	_, err := queue.Result(context.Background(), "send_email:123")
	assert.ErrorIs(t, err, ErrResultNotFound)
}

func TestQueue_StoreResultTTL(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	queue := NewQueue(rdb, WithResultTTL(time.Hour))

	mock.Regexp().ExpectSet(ResultPrefix+"send_email:123", `"status":"completed"`, time.Hour).SetVal("OK")

	err := queue.storeResult(context.Background(), Result{
		TaskID:      "send_email:123",
		Status:      StatusCompleted,
		Result:      json.RawMessage(`{}`),
		CompletedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
