// internal/service/booking/infrastructure/task_handlers.go
package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"tixhub/internal/pkg/logger"
	"tixhub/internal/pkg/mq"
	"tixhub/internal/service/booking/domain"
	"tixhub/internal/task"
)

// SendEmailHandler 处理 send_email 任务。
// 真实的邮件网关接入还没有落地，目前只记录并返回投递回执。
func SendEmailHandler(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var p struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid send_email payload: %w", err)
	}
	if p.To == "" {
		return nil, fmt.Errorf("send_email payload missing recipient")
	}

	logger.Ctx(ctx).Info().Str("to", p.To).Str("subject", p.Subject).Msg("Sending email")
	return map[string]string{"status": "email_sent", "to": p.To}, nil
}

// NewBookingNotificationHandler 返回 booking_notification 任务的 handler，
// 把预订详情发布到 Kafka 通知主题。Kafka 写入失败是典型的瞬时
// 故障，标记为 transient 以便将来叠加重试。
func NewBookingNotificationHandler(writer *kafka.Writer, topic string) task.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var p struct {
			BookingID string `json:"booking_id"`
			UserID    string `json:"user_id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("invalid booking_notification payload: %w", err)
		}
		if p.BookingID == "" || p.UserID == "" {
			return nil, fmt.Errorf("booking_notification payload missing booking_id or user_id")
		}

		if err := mq.ProduceMessage(ctx, writer, topic, []byte(p.UserID), payload); err != nil {
			return nil, task.Transient(fmt.Errorf("failed to publish notification: %w", err))
		}

		logger.Ctx(ctx).Info().Str("booking", p.BookingID).Str("topic", topic).Msg("Booking notification published")
		return map[string]string{"status": "notification_published", "booking_id": p.BookingID}, nil
	}
}

// SalesReportEntry 是销售报表中一个票种的统计。
type SalesReportEntry struct {
	TicketTypeID string  `json:"ticket_type_id"`
	Name         string  `json:"name"`
	Total        int     `json:"total"`
	Remaining    int     `json:"remaining"`
	Booked       int     `json:"booked"`
	Revenue      float64 `json:"revenue"`
}

// NewSalesReportHandler 返回 generate_report 任务的 handler，
// 从权威记录聚合一个事件的销售情况。
func NewSalesReportHandler(events domain.EventRepository) task.HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var p struct {
			EventID string `json:"event_id"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("invalid generate_report payload: %w", err)
		}

		event, err := events.FindEventByID(ctx, p.EventID)
		if err != nil {
			return nil, err
		}

		entries := make([]SalesReportEntry, 0, len(event.TicketTypes))
		for _, tt := range event.TicketTypes {
			booked, err := events.SumActiveQuantity(ctx, event.ID, tt.TicketID)
			if err != nil {
				return nil, task.Transient(err)
			}
			entries = append(entries, SalesReportEntry{
				TicketTypeID: tt.TicketID,
				Name:         tt.Name,
				Total:        tt.Total,
				Remaining:    tt.Remaining,
				Booked:       booked,
				Revenue:      float64(booked) * tt.Price,
			})
		}

		logger.Ctx(ctx).Info().Str("event", p.EventID).Int("ticket_types", len(entries)).Msg("Sales report generated")
		return map[string]interface{}{"event_id": p.EventID, "entries": entries}, nil
	}
}
