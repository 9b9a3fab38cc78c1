// internal/service/booking/domain/port/inventory.go
package port

import (
	"context"

	"tixhub/internal/inventory"
)

// InventoryService 是共享库存计数器的出站端口。
type InventoryService interface {
	Initialize(ctx context.Context, eventID, ticketTypeID string, total int) (bool, error)
	Available(ctx context.Context, eventID, ticketTypeID string) (int, error)
	// Reserve 的充足性检查和扣减靠调用方持有的分布式锁串行化。
	Reserve(ctx context.Context, eventID, ticketTypeID string, quantity int, requesterID string) (inventory.ReservationResult, error)
	Release(ctx context.Context, eventID, ticketTypeID string, quantity int, reason string) (int, error)
	Reconcile(ctx context.Context, eventID, ticketTypeID string, durableValue int) error
}
