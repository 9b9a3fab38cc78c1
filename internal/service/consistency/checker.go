// internal/service/consistency/checker.go
package consistency

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"tixhub/internal/inventory"
	"tixhub/internal/pkg/logger"
	"tixhub/internal/service/booking/domain"
	"tixhub/internal/service/booking/domain/port"
)

// TicketReport 是一个票种的对账结果。
// CacheRemaining 为 nil 表示 Redis 中没有该计数器。
type TicketReport struct {
	TicketTypeID     string `json:"ticket_type_id"`
	Name             string `json:"name"`
	Total            int    `json:"total"`
	CacheRemaining   *int   `json:"cache_remaining"`
	DurableRemaining int    `json:"durable_remaining"`
	Booked           int    `json:"booked"`
	// ExpectedRemaining = Total - Booked，独立于缓存重算，
	// 用来发现权威记录自身的损坏。
	ExpectedRemaining int  `json:"expected_remaining"`
	CacheMismatch     bool `json:"cache_mismatch"`
	DurableMismatch   bool `json:"durable_mismatch"`
}

// Report 是一个事件全部票种的对账汇总。
type Report struct {
	EventID string         `json:"event_id"`
	InSync  bool           `json:"in_sync"`
	Tickets []TicketReport `json:"tickets"`
}

// SyncedTicket 记录一次强制回写后的票种状态。
type SyncedTicket struct {
	TicketTypeID string `json:"ticket_type_id"`
	Name         string `json:"name"`
	Remaining    int    `json:"remaining"`
}

// Checker 对比 Redis 计数器与权威记录，并能单向强制回写。
type Checker struct {
	inventory port.InventoryService
	events    domain.EventRepository
}

func NewChecker(inv port.InventoryService, events domain.EventRepository) *Checker {
	return &Checker{inventory: inv, events: events}
}

// Compare 逐票种对比缓存值、权威剩余量和按预订重算的期望值。
// 各票种之间互不依赖，并发执行。
func (c *Checker) Compare(ctx context.Context, eventID string) (*Report, error) {
	event, err := c.events.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tickets := make([]TicketReport, len(event.TicketTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, tt := range event.TicketTypes {
		g.Go(func() error {
			report := TicketReport{
				TicketTypeID:      tt.TicketID,
				Name:              tt.Name,
				Total:             tt.Total,
				DurableRemaining:  tt.Remaining,
				ExpectedRemaining: tt.Total,
			}

			available, err := c.inventory.Available(gctx, eventID, tt.TicketID)
			switch {
			case err == nil:
				report.CacheRemaining = &available
				report.CacheMismatch = available != tt.Remaining
			case errors.Is(err, inventory.ErrNotInitialized), errors.Is(err, inventory.ErrInvalidData):
				// 计数器缺失或损坏也算不同步，reconcile 能修复。
				report.CacheMismatch = true
			default:
				return err
			}

			booked, err := c.events.SumActiveQuantity(gctx, eventID, tt.TicketID)
			if err != nil {
				return err
			}
			report.Booked = booked
			report.ExpectedRemaining = tt.Total - booked
			report.DurableMismatch = tt.Remaining != report.ExpectedRemaining

			tickets[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{EventID: eventID, InSync: true, Tickets: tickets}
	for _, t := range tickets {
		if t.CacheMismatch || t.DurableMismatch {
			report.InSync = false
			break
		}
	}
	if !report.InSync {
		logger.Ctx(ctx).Warn().Str("event", eventID).Msg("Inventory out of sync with durable store")
	}
	return report, nil
}

// Reconcile 用权威剩余量覆盖每个票种的计数器。
// 方向是固定的：权威记录 → 缓存，反向永远不允许。
func (c *Checker) Reconcile(ctx context.Context, eventID string) ([]SyncedTicket, error) {
	event, err := c.events.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	synced := make([]SyncedTicket, 0, len(event.TicketTypes))
	for _, tt := range event.TicketTypes {
		if err := c.inventory.Reconcile(ctx, eventID, tt.TicketID, tt.Remaining); err != nil {
			return nil, err
		}
		synced = append(synced, SyncedTicket{
			TicketTypeID: tt.TicketID,
			Name:         tt.Name,
			Remaining:    tt.Remaining,
		})
	}

	logger.Ctx(ctx).Info().Str("event", eventID).Int("ticket_types", len(synced)).Msg("Inventory reconciled from durable store")
	return synced, nil
}
