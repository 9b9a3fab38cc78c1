// internal/task/queue.go
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tixhub/internal/pkg/logger"
)

// ErrResultNotFound 表示结果不存在或 TTL 已过期。
var ErrResultNotFound = errors.New("task result not found")

const DefaultResultTTL = time.Hour

// Queue 是基于 Redis list 的 FIFO 任务队列。
// 生产方 LPUSH，worker BRPOP，一个任务只会被弹出一次。
type Queue struct {
	rdb       *redis.Client
	resultTTL time.Duration
}

type QueueOption func(*Queue)

func WithResultTTL(ttl time.Duration) QueueOption {
	return func(q *Queue) { q.resultTTL = ttl }
}

func NewQueue(rdb *redis.Client, opts ...QueueOption) *Queue {
	q := &Queue{rdb: rdb, resultTTL: DefaultResultTTL}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue 序列化任务并推入队列，返回任务 ID。
// ID 由任务名和提交时间组成，同名任务按时间可排序。
func (q *Queue) Enqueue(ctx context.Context, name string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for task %q: %w", name, err)
	}

	t := Task{
		ID:        fmt.Sprintf("%s:%d", name, time.Now().UnixNano()),
		Name:      name,
		Payload:   data,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}

	encoded, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task %q: %w", t.ID, err)
	}

	if err := q.rdb.LPush(ctx, QueueKey, string(encoded)).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue task %q: %w", t.ID, err)
	}

	logger.Ctx(ctx).Info().Str("task", t.ID).Msg("Task enqueued")
	return t.ID, nil
}

// Dequeue 以有界阻塞的方式弹出一个任务。
// 超时窗口内没有任务时返回 (nil, nil)，让 worker 循环有机会检查退出条件。
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Task, error) {
	values, err := q.rdb.BRPop(ctx, timeout, QueueKey).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop task: %w", err)
	}
	// BRPOP 返回 [key, value]
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply length: %d", len(values))
	}

	var t Task
	if err := json.Unmarshal([]byte(values[1]), &t); err != nil {
		return nil, fmt.Errorf("failed to decode task payload: %w", err)
	}
	return &t, nil
}

// Result 查询任务结果。TTL 过期后返回 ErrResultNotFound。
func (q *Queue) Result(ctx context.Context, taskID string) (*Result, error) {
	data, err := q.rdb.Get(ctx, ResultPrefix+taskID).Result()
	if err == redis.Nil {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result for task %q: %w", taskID, err)
	}

	var r Result
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode result for task %q: %w", taskID, err)
	}
	return &r, nil
}

// storeResult 带 TTL 写入任务结果。
func (q *Queue) storeResult(ctx context.Context, r Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result for task %q: %w", r.TaskID, err)
	}
	if err := q.rdb.Set(ctx, ResultPrefix+r.TaskID, string(data), q.resultTTL).Err(); err != nil {
		return fmt.Errorf("failed to store result for task %q: %w", r.TaskID, err)
	}
	logger.Ctx(ctx).Info().Str("task", r.TaskID).Str("status", string(r.Status)).Msg("Task result stored")
	return nil
}
