// internal/service/booking/domain/booking.go
package domain

import (
	"errors"
	"fmt"
	"time"
)

// MaxTicketsPerRequest 限制单次预订的票数上限，约束任何一次失败的
// 波及范围。CEL 策略可以在此之下进一步收紧，但不能放宽。
const MaxTicketsPerRequest = 10

// Booking 是预订聚合的根实体。
// State 记录它在 预留 → 持久化 → 补偿 流水线中的位置。
type Booking struct {
	ID             string
	EventID        string
	TicketTypeID   string
	TicketTypeName string
	UserID         string
	Quantity       int
	PricePerTicket float64
	TotalPrice     float64
	State          State
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingRequest 是来自接口层的预订请求字段。
type BookingRequest struct {
	EventID        string
	TicketTypeID   string
	TicketTypeName string
	Quantity       int
	PricePerTicket float64
	TotalPrice     float64
	UserID         string
}

// NewBooking 校验请求并创建一个处于 REQUESTED 状态的预订实体。
func NewBooking(id string, req *BookingRequest) (*Booking, error) {
	if req.EventID == "" || req.TicketTypeID == "" || req.UserID == "" {
		return nil, errors.New("cannot create booking with empty required fields")
	}
	if req.Quantity < 1 || req.Quantity > MaxTicketsPerRequest {
		return nil, fmt.Errorf("quantity must be between 1 and %d, got %d", MaxTicketsPerRequest, req.Quantity)
	}

	now := time.Now()
	return &Booking{
		ID:             id,
		EventID:        req.EventID,
		TicketTypeID:   req.TicketTypeID,
		TicketTypeName: req.TicketTypeName,
		UserID:         req.UserID,
		Quantity:       req.Quantity,
		PricePerTicket: req.PricePerTicket,
		TotalPrice:     req.TotalPrice,
		State:          StateRequested,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// MarkReserved 记录计数器扣减成功。
func (b *Booking) MarkReserved() error {
	if b.State != StateRequested {
		return fmt.Errorf("cannot reserve booking in state %s", b.State)
	}
	b.transition(StateReserved)
	return nil
}

// MarkReservationFailed 记录预留失败。此时没有任何副作用，无需补偿。
func (b *Booking) MarkReservationFailed(reason string) {
	b.FailureReason = reason
	b.transition(StateReservationFailed)
}

// MarkPersisted 记录权威记录写入成功。
func (b *Booking) MarkPersisted() error {
	if b.State != StateReserved {
		return fmt.Errorf("cannot persist booking in state %s", b.State)
	}
	b.transition(StatePersisted)
	return nil
}

// MarkPersistFailed 记录持久化失败，进入待补偿状态。
func (b *Booking) MarkPersistFailed(reason string) {
	b.FailureReason = reason
	b.transition(StatePersistFailed)
}

// MarkCompensated 记录计数器已恢复到预留前的值。
func (b *Booking) MarkCompensated() error {
	if b.State != StatePersistFailed {
		return fmt.Errorf("cannot compensate booking in state %s", b.State)
	}
	b.transition(StateCompensated)
	return nil
}

// MarkFailed 进入终态失败。只允许从已补偿状态进入，
// 保证失败路径上补偿一定先于对外上报。
func (b *Booking) MarkFailed() error {
	if b.State != StateCompensated {
		return fmt.Errorf("cannot fail booking in state %s", b.State)
	}
	b.transition(StateFailed)
	return nil
}

// MarkCompleted 进入终态成功。
func (b *Booking) MarkCompleted() error {
	if b.State != StatePersisted {
		return fmt.Errorf("cannot complete booking in state %s", b.State)
	}
	b.transition(StateCompleted)
	return nil
}

func (b *Booking) transition(s State) {
	b.State = s
	b.UpdatedAt = time.Now()
}
