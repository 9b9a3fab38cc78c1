// internal/service/booking/domain/port/task.go
package port

import "context"

// 已注册的后台任务名。worker 启动时按这张表注册 handler，
// 未知名字在分发时会产生 failed 结果。
const (
	TaskSendEmail           = "send_email"
	TaskBookingNotification = "booking_notification"
	TaskGenerateReport      = "generate_report"
)

// TaskEnqueuer 是后台任务队列的出站端口。
// 通知类任务是 best-effort：入队失败只记日志，不回滚预订。
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, name string, payload interface{}) (string, error)
}
