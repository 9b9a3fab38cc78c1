// internal/service/booking/domain/repository.go
package domain

import "context"

// EventRepository 是核心对持久存储的全部要求：
// 按稳定标识读取事件，以及对每票种剩余量的 read-modify-write。
type EventRepository interface {
	FindEventByID(ctx context.Context, eventID string) (*Event, error)

	// AppendBooking 在一个持久化事务里扣减票种剩余量并写入预订记录。
	// 实现必须用条件更新（remaining >= quantity）防止锁未覆盖持久写
	// 的部署丢失更新；条件不满足时返回 ErrConcurrentUpdate。
	AppendBooking(ctx context.Context, b *Booking) error

	// CancelBooking 把预订标记为取消并把数量加回票种剩余量，
	// 返回被取消的预订供调用方释放 Redis 计数器。
	CancelBooking(ctx context.Context, bookingID, userID string) (*Booking, error)

	// SumActiveQuantity 统计一个票种下所有有效预订的总票数，
	// 一致性检查用它重算期望剩余量。
	SumActiveQuantity(ctx context.Context, eventID, ticketTypeID string) (int, error)
}
