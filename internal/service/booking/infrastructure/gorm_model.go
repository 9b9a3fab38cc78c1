// internal/service/booking/infrastructure/gorm_model.go
package infrastructure

import "time"

// EventModel 是 events 表的数据库模型。
type EventModel struct {
	ID          string `gorm:"primaryKey;size:64"`
	Name        string `gorm:"size:255;not null"`
	Venue       string `gorm:"size:255"`
	StartsAt    time.Time
	CreatedAt   time.Time
	TicketTypes []TicketTypeModel `gorm:"foreignKey:EventID;references:ID"`
}

func (EventModel) TableName() string { return "events" }

// TicketTypeModel 持有每票种的权威剩余量。
// (event_id, ticket_id) 唯一，条件更新按这对键定位。
type TicketTypeModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	EventID   string `gorm:"size:64;not null;uniqueIndex:idx_event_ticket"`
	TicketID  string `gorm:"size:64;not null;uniqueIndex:idx_event_ticket"`
	Name      string `gorm:"size:128;not null"`
	Price     float64
	Total     int `gorm:"not null"`
	Remaining int `gorm:"not null"`
}

func (TicketTypeModel) TableName() string { return "ticket_types" }

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// BookingModel 是已确认预订的权威记录。
type BookingModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	EventID        string `gorm:"size:64;not null;index"`
	TicketTypeID   string `gorm:"size:64;not null;index"`
	TicketTypeName string `gorm:"size:128"`
	UserID         string `gorm:"size:64;not null;index"`
	Quantity       int    `gorm:"not null"`
	PricePerTicket float64
	TotalPrice     float64
	Status         string `gorm:"size:16;not null;default:confirmed"`
	CreatedAt      time.Time
}

func (BookingModel) TableName() string { return "bookings" }
