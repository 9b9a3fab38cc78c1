// internal/service/booking/domain/event.go
package domain

import "time"

// Event 是权威记录中的事件实体，核心只消费不拥有它。
type Event struct {
	ID          string
	Name        string
	Venue       string
	StartsAt    time.Time
	TicketTypes []TicketType
	CreatedAt   time.Time
}

// TicketType 是事件下的一个票种。Remaining 是长期一致性的权威值，
// Redis 计数器只在单次抢票竞争窗口内是事实来源。
type TicketType struct {
	TicketID  string
	Name      string
	Price     float64
	Total     int
	Remaining int
}

// FindTicketType 按票种 ID 定位子记录。
func (e *Event) FindTicketType(ticketTypeID string) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].TicketID == ticketTypeID {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}
