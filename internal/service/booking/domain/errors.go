// internal/service/booking/domain/errors.go
package domain

import "errors"

var (
	// ErrLockAcquisition 表示重试耗尽仍未拿到分布式锁。
	// 调用方必须放弃本次操作，此时没有任何状态被改动。
	ErrLockAcquisition = errors.New("failed to acquire distributed lock")

	// ErrEventNotFound 表示权威记录中不存在该事件。
	ErrEventNotFound = errors.New("event not found")

	// ErrTicketTypeNotFound 表示事件存在但没有对应的票种子记录。
	ErrTicketTypeNotFound = errors.New("ticket type not found")

	// ErrBookingNotFound 表示权威记录中不存在该预订。
	ErrBookingNotFound = errors.New("booking not found")

	// ErrConcurrentUpdate 表示条件更新没有命中任何行：
	// 要么剩余量已不足，要么另一副本并发修改了同一行。
	ErrConcurrentUpdate = errors.New("durable record concurrently updated or insufficient")

	// ErrDurablePersistence 包裹所有写权威记录时的故障。
	// 编排器看到它时必定已经执行了库存补偿。
	ErrDurablePersistence = errors.New("durable persistence failure")

	// ErrPolicyRejected 表示预订请求未通过准入策略。
	ErrPolicyRejected = errors.New("booking rejected by policy")
)
