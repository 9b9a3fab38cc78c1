// internal/service/booking/infrastructure/mapper.go
package infrastructure

import "tixhub/internal/service/booking/domain"

// ToDomainEvent 把数据库模型转换为领域模型。
func ToDomainEvent(m *EventModel) *domain.Event {
	event := &domain.Event{
		ID:        m.ID,
		Name:      m.Name,
		Venue:     m.Venue,
		StartsAt:  m.StartsAt,
		CreatedAt: m.CreatedAt,
	}
	for _, tt := range m.TicketTypes {
		event.TicketTypes = append(event.TicketTypes, domain.TicketType{
			TicketID:  tt.TicketID,
			Name:      tt.Name,
			Price:     tt.Price,
			Total:     tt.Total,
			Remaining: tt.Remaining,
		})
	}
	return event
}

// ToBookingModel 把领域预订实体转换为数据库模型。
func ToBookingModel(b *domain.Booking) *BookingModel {
	return &BookingModel{
		ID:             b.ID,
		EventID:        b.EventID,
		TicketTypeID:   b.TicketTypeID,
		TicketTypeName: b.TicketTypeName,
		UserID:         b.UserID,
		Quantity:       b.Quantity,
		PricePerTicket: b.PricePerTicket,
		TotalPrice:     b.TotalPrice,
		Status:         BookingStatusConfirmed,
		CreatedAt:      b.CreatedAt,
	}
}

// ToDomainBooking 把数据库预订记录转换回领域实体。
// 数据库中只存已确认/已取消的预订，流水线状态恒为 COMPLETED。
func ToDomainBooking(m *BookingModel) *domain.Booking {
	return &domain.Booking{
		ID:             m.ID,
		EventID:        m.EventID,
		TicketTypeID:   m.TicketTypeID,
		TicketTypeName: m.TicketTypeName,
		UserID:         m.UserID,
		Quantity:       m.Quantity,
		PricePerTicket: m.PricePerTicket,
		TotalPrice:     m.TotalPrice,
		State:          domain.StateCompleted,
		CreatedAt:      m.CreatedAt,
	}
}
