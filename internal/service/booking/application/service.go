// internal/service/booking/application/service.go
package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tixhub/internal/inventory"
	"tixhub/internal/pkg/logger"
	"tixhub/internal/pkg/metrics"
	"tixhub/internal/service/booking/domain"
	"tixhub/internal/service/booking/domain/port"
)

// BookingApplicationService 负责预订流水线的编排：
// 准入策略 → 加锁 → 预留计数器 → 写权威记录 → 失败补偿 → 异步通知。
type BookingApplicationService struct {
	events    domain.EventRepository
	inventory port.InventoryService
	locks     port.LockFactory
	tasks     port.TaskEnqueuer
	policy    port.BookingPolicy
	tracer    trace.Tracer

	lockMaxRetries int
	maxPerRequest  int
}

func NewBookingApplicationService(
	events domain.EventRepository,
	inv port.InventoryService,
	locks port.LockFactory,
	tasks port.TaskEnqueuer,
	policy port.BookingPolicy,
	tracer trace.Tracer,
	lockMaxRetries int,
) *BookingApplicationService {
	return &BookingApplicationService{
		events:         events,
		inventory:      inv,
		locks:          locks,
		tasks:          tasks,
		policy:         policy,
		tracer:         tracer,
		lockMaxRetries: lockMaxRetries,
		maxPerRequest:  domain.MaxTicketsPerRequest,
	}
}

// BookTickets 执行完整的预订流水线。
//
// 锁的范围覆盖计数器扣减和权威记录写入两步。这是一个明确的
// 正确性决策：只锁计数器会让两个请求对同一票种的持久化
// read-modify-write 互相竞争；仓储层的条件更新是第二道防线，
// 不是替代品。
//
// 业务性失败返回 (resp, nil)，resp.Success=false；只有锁获取失败、
// 存储故障这类系统性错误才返回 error。
func (s *BookingApplicationService) BookTickets(ctx context.Context, req *BookTicketsRequest) (*BookTicketsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "booking.BookTickets")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", req.EventID),
		attribute.String("ticket_type.id", req.TicketTypeID),
		attribute.Int("quantity", req.Quantity),
	)

	booking, err := domain.NewBooking(uuid.New().String(), req.toDomain())
	if err != nil {
		metrics.BookingRequests.WithLabelValues("invalid").Inc()
		span.SetStatus(codes.Error, "invalid booking request")
		return nil, err
	}

	allowed, err := s.policy.Allow(ctx, port.PolicyFact{
		Quantity:      req.Quantity,
		MaxPerRequest: s.maxPerRequest,
		TotalPrice:    req.TotalPrice,
		UserID:        req.UserID,
		EventID:       req.EventID,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("policy evaluation failed: %w", err)
	}
	if !allowed {
		metrics.BookingRequests.WithLabelValues("policy_rejected").Inc()
		booking.MarkReservationFailed("policy rejected")
		return nil, domain.ErrPolicyRejected
	}

	lock := s.locks.NewLock(inventory.LockResource(req.EventID, req.TicketTypeID))
	acquired, err := lock.Acquire(ctx, true, s.lockMaxRetries)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("lock acquire: %w", err)
	}
	if !acquired {
		metrics.BookingRequests.WithLabelValues("lock_failed").Inc()
		span.SetStatus(codes.Error, "lock acquisition failed")
		return nil, domain.ErrLockAcquisition
	}
	// 每条退出路径都必须释放锁；过期+他人重占时 Release 自己会拒绝误删。
	defer func() {
		if _, err := lock.Release(ctx); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("booking", booking.ID).Msg("Failed to release lock")
		}
	}()

	result, err := s.reserve(ctx, booking, req)
	if err != nil || !result.Success {
		return result, err
	}

	if err := s.persist(ctx, booking, req); err != nil {
		return nil, err
	}

	s.notify(ctx, booking)

	metrics.BookingRequests.WithLabelValues("success").Inc()
	span.AddEvent("Booking completed")
	return result, nil
}

// reserve 执行 Requested → Reserved（或 → ReservationFailed）。
func (s *BookingApplicationService) reserve(ctx context.Context, booking *domain.Booking, req *BookTicketsRequest) (*BookTicketsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Reserve")
	defer span.End()

	res, err := s.inventory.Reserve(ctx, req.EventID, req.TicketTypeID, req.Quantity, req.UserID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !res.Success {
		// 预留失败没有产生任何副作用，原因原样返回给调用方。
		metrics.BookingRequests.WithLabelValues("reservation_failed").Inc()
		booking.MarkReservationFailed(string(res.Code))
		span.SetStatus(codes.Error, "reservation failed")
		return &BookTicketsResponse{
			Success:   false,
			State:     booking.State,
			Available: res.Available,
			Requested: res.Requested,
			ErrorCode: res.Code,
			Message:   reservationFailureMessage(res.Code),
		}, nil
	}

	if err := booking.MarkReserved(); err != nil {
		return nil, err
	}
	return &BookTicketsResponse{
		Success:   true,
		BookingID: booking.ID,
		State:     booking.State,
		Remaining: res.Remaining,
		Message:   "Booking successful",
	}, nil
}

// persist 执行 Reserved → Persisted → Completed；
// 持久化失败时走 PersistFailed → Compensated → Failed 分支，
// 把预留的数量精确地加回计数器后再向上抛错。
func (s *BookingApplicationService) persist(ctx context.Context, booking *domain.Booking, req *BookTicketsRequest) error {
	ctx, span := s.tracer.Start(ctx, "booking.Persist")
	defer span.End()

	if err := s.events.AppendBooking(ctx, booking); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "durable write failed")
		booking.MarkPersistFailed(err.Error())
		s.compensate(ctx, booking, req)
		metrics.BookingRequests.WithLabelValues("persist_failed").Inc()
		return fmt.Errorf("%w: %v", domain.ErrDurablePersistence, err)
	}

	if err := booking.MarkPersisted(); err != nil {
		return err
	}
	return booking.MarkCompleted()
}

// compensate 把预留的数量加回计数器，恢复到预留前的值。
// 补偿自身失败是需要人工介入的严重事件，只能记录。
func (s *BookingApplicationService) compensate(ctx context.Context, booking *domain.Booking, req *BookTicketsRequest) {
	ctx, span := s.tracer.Start(ctx, "booking.Compensate")
	defer span.End()

	if _, err := s.inventory.Release(ctx, req.EventID, req.TicketTypeID, req.Quantity, "booking_failed"); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Str("booking", booking.ID).
			Int("quantity", req.Quantity).
			Msg("CRITICAL: inventory compensation failed, manual intervention required")
		return
	}

	metrics.CompensationsTotal.Inc()
	if err := booking.MarkCompensated(); err == nil {
		_ = booking.MarkFailed()
	}
	logger.Ctx(ctx).Warn().Str("booking", booking.ID).Msg("Booking rolled back, inventory restored")
}

// notify 发出 best-effort 的异步通知任务。
// 入队失败只记日志：通知不属于预订的正确性契约，绝不回滚。
func (s *BookingApplicationService) notify(ctx context.Context, booking *domain.Booking) {
	taskID, err := s.tasks.Enqueue(ctx, port.TaskBookingNotification, &NotificationPayload{
		BookingID:      booking.ID,
		EventID:        booking.EventID,
		TicketTypeID:   booking.TicketTypeID,
		TicketTypeName: booking.TicketTypeName,
		Quantity:       booking.Quantity,
		TotalPrice:     booking.TotalPrice,
		UserID:         booking.UserID,
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("booking", booking.ID).Msg("Failed to enqueue notification task")
		return
	}
	logger.Ctx(ctx).Info().Str("booking", booking.ID).Str("task", taskID).Msg("Notification task enqueued")
}

// Availability 返回实时剩余量。计数器不存在时回退到权威记录，
// 顺手完成惰性初始化（事件创建早于 Redis 接入的存量数据靠它补齐）。
func (s *BookingApplicationService) Availability(ctx context.Context, eventID, ticketTypeID string) (*AvailabilityResponse, error) {
	ctx, span := s.tracer.Start(ctx, "booking.Availability")
	defer span.End()

	available, err := s.inventory.Available(ctx, eventID, ticketTypeID)
	if err == nil {
		return &AvailabilityResponse{EventID: eventID, TicketTypeID: ticketTypeID, Available: available}, nil
	}
	if !errors.Is(err, inventory.ErrNotInitialized) {
		span.RecordError(err)
		return nil, err
	}

	event, err := s.events.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tt, ok := event.FindTicketType(ticketTypeID)
	if !ok {
		return nil, domain.ErrTicketTypeNotFound
	}

	if _, err := s.inventory.Initialize(ctx, eventID, ticketTypeID, tt.Remaining); err != nil {
		return nil, err
	}
	return &AvailabilityResponse{EventID: eventID, TicketTypeID: ticketTypeID, Available: tt.Remaining}, nil
}

// InitializeEventInventory 在事件创建时为它的所有票种建立计数器。
// Initialize 幂等，事件创建的重试可以安全地重复调用。
func (s *BookingApplicationService) InitializeEventInventory(ctx context.Context, eventID string) error {
	ctx, span := s.tracer.Start(ctx, "booking.InitializeEventInventory")
	defer span.End()

	event, err := s.events.FindEventByID(ctx, eventID)
	if err != nil {
		return err
	}

	for _, tt := range event.TicketTypes {
		created, err := s.inventory.Initialize(ctx, eventID, tt.TicketID, tt.Remaining)
		if err != nil {
			return err
		}
		if !created {
			logger.Ctx(ctx).Debug().
				Str("event", eventID).
				Str("ticket_type", tt.TicketID).
				Msg("Inventory already exists, skipped")
		}
	}
	return nil
}

// CancelBooking 取消一个已确认的预订：权威记录先行（标记取消并
// 恢复剩余量），然后把数量加回计数器。加库存不会造成超卖，
// 不需要锁。
func (s *BookingApplicationService) CancelBooking(ctx context.Context, bookingID, userID string) (*CancelBookingResponse, error) {
	ctx, span := s.tracer.Start(ctx, "booking.CancelBooking")
	defer span.End()

	booking, err := s.events.CancelBooking(ctx, bookingID, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	available, err := s.inventory.Release(ctx, booking.EventID, booking.TicketTypeID, booking.Quantity, "cancelled")
	if err != nil {
		// 权威记录已恢复而缓存没有，留给一致性检查兜底。
		logger.Ctx(ctx).Error().Err(err).Str("booking", bookingID).Msg("Failed to release inventory after cancel")
		return nil, err
	}

	return &CancelBookingResponse{
		Success:   true,
		BookingID: bookingID,
		Released:  booking.Quantity,
		Available: available,
	}, nil
}

func reservationFailureMessage(code inventory.Code) string {
	switch code {
	case inventory.CodeNotFound:
		return "Ticket type not found or inventory not initialized"
	case inventory.CodeInvalidData:
		return "Invalid inventory data"
	case inventory.CodeInsufficient:
		return "Insufficient tickets"
	default:
		return "Booking failed"
	}
}
