// internal/task/worker.go
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"tixhub/internal/pkg/logger"
	"tixhub/internal/pkg/metrics"
)

// HandlerFunc 处理一个任务。返回值会被序列化进 Result。
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// transientError 标记一个可能通过重试恢复的故障。
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient 把 err 标记为瞬时故障。handler 在明确知道失败是
// I/O 类问题时使用，worker 会把分类记录在结果里。
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient 判断 err 是否被标记为瞬时故障。
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

const DefaultPopTimeout = 5 * time.Second

// Worker 是任务队列的长期消费者。
// handler 在启动时注册完毕，未知任务名会产生 failed 结果而不是崩溃；
// 一个任务只尝试一次，失败不重新入队。
type Worker struct {
	queue      *Queue
	handlers   map[string]HandlerFunc
	popTimeout time.Duration
}

type WorkerOption func(*Worker)

func WithPopTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.popTimeout = d }
}

func NewWorker(queue *Queue, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:      queue,
		handlers:   make(map[string]HandlerFunc),
		popTimeout: DefaultPopTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Register 注册一个任务 handler。重复注册同名任务是装配错误，直接 panic。
func (w *Worker) Register(name string, fn HandlerFunc) {
	if _, exists := w.handlers[name]; exists {
		panic(fmt.Sprintf("task handler %q registered twice", name))
	}
	w.handlers[name] = fn
}

// HandlerNames 返回已注册的任务名，测试用来校验注册表是否完整。
func (w *Worker) HandlerNames() []string {
	names := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run 是 worker 主循环，阻塞直到 ctx 取消。
// 弹出失败视为瞬时 I/O 故障：记录日志、退避、继续轮询，绝不退出。
func (w *Worker) Run(ctx context.Context) {
	logger.Ctx(ctx).Info().Strs("handlers", w.HandlerNames()).Msg("Worker started, waiting for tasks...")

	for {
		select {
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("Worker shutting down")
			return
		default:
		}

		t, err := w.queue.Dequeue(ctx, w.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("Worker shutting down")
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("Worker failed to pop task, retrying...")
			time.Sleep(time.Second)
			continue
		}
		if t == nil {
			continue
		}

		w.Process(ctx, t)
	}
}

// Process 分发并执行一个任务，把结果写入结果存储。
// handler 的失败对任务是终结性的（记录为 failed），对 worker 不是。
func (w *Worker) Process(ctx context.Context, t *Task) Result {
	logger.Ctx(ctx).Info().Str("task", t.ID).Str("name", t.Name).Msg("Processing task")

	result := w.dispatch(ctx, t)

	if err := w.queue.storeResult(ctx, result); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("task", t.ID).Msg("Failed to store task result")
	}
	metrics.TasksProcessed.WithLabelValues(t.Name, string(result.Status)).Inc()
	return result
}

func (w *Worker) dispatch(ctx context.Context, t *Task) Result {
	handler, ok := w.handlers[t.Name]
	if !ok {
		err := fmt.Errorf("unknown task: %s", t.Name)
		logger.Ctx(ctx).Error().Err(err).Str("task", t.ID).Msg("Task failed")
		return Result{
			TaskID:      t.ID,
			Status:      StatusFailed,
			Error:       err.Error(),
			ErrorClass:  ErrorClassPermanent,
			CompletedAt: time.Now().UTC(),
		}
	}

	out, err := handler(ctx, t.Payload)
	if err != nil {
		class := ErrorClassPermanent
		if IsTransient(err) {
			class = ErrorClassTransient
		}
		logger.Ctx(ctx).Error().Err(err).Str("task", t.ID).Str("class", string(class)).Msg("Task failed")
		return Result{
			TaskID:      t.ID,
			Status:      StatusFailed,
			Error:       err.Error(),
			ErrorClass:  class,
			CompletedAt: time.Now().UTC(),
		}
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		return Result{
			TaskID:      t.ID,
			Status:      StatusFailed,
			Error:       fmt.Sprintf("failed to marshal handler output: %v", err),
			ErrorClass:  ErrorClassPermanent,
			CompletedAt: time.Now().UTC(),
		}
	}

	return Result{
		TaskID:      t.ID,
		Status:      StatusCompleted,
		Result:      encoded,
		CompletedAt: time.Now().UTC(),
	}
}
