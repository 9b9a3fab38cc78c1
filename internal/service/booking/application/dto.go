// internal/service/booking/application/dto.go
package application

import (
	"tixhub/internal/inventory"
	"tixhub/internal/service/booking/domain"
)

// BookTicketsRequest 是预订用例的输入数据（来自接口层）。
type BookTicketsRequest struct {
	EventID        string  `json:"event_id"`
	TicketTypeID   string  `json:"ticket_type_id"`
	TicketTypeName string  `json:"ticket_type_name"`
	Quantity       int     `json:"quantity"`
	PricePerTicket float64 `json:"price_per_ticket"`
	TotalPrice     float64 `json:"total_price"`
	UserID         string  `json:"user_id"`
}

func (r *BookTicketsRequest) toDomain() *domain.BookingRequest {
	return &domain.BookingRequest{
		EventID:        r.EventID,
		TicketTypeID:   r.TicketTypeID,
		TicketTypeName: r.TicketTypeName,
		Quantity:       r.Quantity,
		PricePerTicket: r.PricePerTicket,
		TotalPrice:     r.TotalPrice,
		UserID:         r.UserID,
	}
}

// BookTicketsResponse 是预订用例的结构化结果。
// 业务性失败（库存不足、未初始化）在这里表达，不作为 error。
type BookTicketsResponse struct {
	Success   bool           `json:"success"`
	BookingID string         `json:"booking_id,omitempty"`
	State     domain.State   `json:"state"`
	Message   string         `json:"message,omitempty"`
	Remaining int            `json:"remaining,omitempty"`
	Available int            `json:"available,omitempty"`
	Requested int            `json:"requested,omitempty"`
	ErrorCode inventory.Code `json:"error,omitempty"`
}

// AvailabilityResponse 是实时可用量查询的结果。
type AvailabilityResponse struct {
	EventID      string `json:"event_id"`
	TicketTypeID string `json:"ticket_type_id"`
	Available    int    `json:"available"`
}

// CancelBookingResponse 是取消预订的结果。
type CancelBookingResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"booking_id"`
	Released  int    `json:"released"`
	Available int    `json:"available"`
}

// NotificationPayload 是预订成功后异步通知任务携带的数据。
type NotificationPayload struct {
	BookingID      string  `json:"booking_id"`
	EventID        string  `json:"event_id"`
	TicketTypeID   string  `json:"ticket_type_id"`
	TicketTypeName string  `json:"ticket_type_name"`
	Quantity       int     `json:"quantity"`
	TotalPrice     float64 `json:"total_price"`
	UserID         string  `json:"user_id"`
}
