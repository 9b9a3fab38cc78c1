// internal/task/task.go
package task

import (
	"encoding/json"
	"time"
)

// Redis key 约定是对外契约，worker 的多个历史部署都依赖它。
const (
	QueueKey     = "task_queue"
	ResultPrefix = "task_result:"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task 是队列中一个待处理的工作单元。
// 字段名与既有的 JSON 编码保持一致。
type Task struct {
	ID        string          `json:"task_id"`
	Name      string          `json:"task_name"`
	Payload   json.RawMessage `json:"task_data"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// ErrorClass 区分 handler 失败的性质：瞬时故障（I/O 超时等，
// 将来可以重试）和永久故障（未知任务名、非法参数）。
// 当前语义仍是单次尝试，分类只记录在结果里，为将来叠加重试
// 策略留出位置。
type ErrorClass string

const (
	ErrorClassTransient ErrorClass = "transient"
	ErrorClassPermanent ErrorClass = "permanent"
)

// Result 是任务的最终结果，带 TTL 存储在 Redis 中。
type Result struct {
	TaskID      string          `json:"task_id"`
	Status      Status          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorClass  ErrorClass      `json:"error_class,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}
