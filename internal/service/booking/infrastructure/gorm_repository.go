// internal/service/booking/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"tixhub/internal/service/booking/domain"
)

// GormEventRepository 是 domain.EventRepository 的 GORM/MySQL 实现。
type GormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository 创建一个新的 GORM 仓储实例。
func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	return &GormEventRepository{db: db}
}

// OpenMysql 建立 MySQL 连接并确保表结构存在。
func OpenMysql(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	if err := db.AutoMigrate(&EventModel{}, &TicketTypeModel{}, &BookingModel{}); err != nil {
		return nil, errors.Wrap(err, "auto migrate")
	}
	return db, nil
}

// FindEventByID 按 ID 加载事件及其全部票种。
func (r *GormEventRepository) FindEventByID(ctx context.Context, eventID string) (*domain.Event, error) {
	var model EventModel
	err := r.db.WithContext(ctx).Preload("TicketTypes").Where("id = ?", eventID).First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrEventNotFound
		}
		return nil, errors.Wrapf(err, "find event %s", eventID)
	}
	return ToDomainEvent(&model), nil
}

// AppendBooking 在一个事务里完成 剩余量扣减 + 预订写入。
// 扣减用条件更新（remaining >= quantity）并检查命中行数：
// 即使部署把锁的范围缩回只盖计数器，这里也不会把剩余量写成负数
// 或丢失并发更新。
func (r *GormEventRepository) AppendBooking(ctx context.Context, b *domain.Booking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&TicketTypeModel{}).
			Where("event_id = ? AND ticket_id = ? AND remaining >= ?", b.EventID, b.TicketTypeID, b.Quantity).
			UpdateColumn("remaining", gorm.Expr("remaining - ?", b.Quantity))
		if res.Error != nil {
			return errors.Wrap(res.Error, "decrement remaining")
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&TicketTypeModel{}).
				Where("event_id = ? AND ticket_id = ?", b.EventID, b.TicketTypeID).
				Count(&count).Error; err != nil {
				return errors.Wrap(err, "probe ticket type")
			}
			if count == 0 {
				return domain.ErrTicketTypeNotFound
			}
			return domain.ErrConcurrentUpdate
		}

		if err := tx.Create(ToBookingModel(b)).Error; err != nil {
			return errors.Wrapf(err, "insert booking %s", b.ID)
		}
		return nil
	})
}

// CancelBooking 把预订标记为取消并恢复票种剩余量，整体在一个事务里。
func (r *GormEventRepository) CancelBooking(ctx context.Context, bookingID, userID string) (*domain.Booking, error) {
	var model BookingModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ? AND status = ?", bookingID, userID, BookingStatusConfirmed).
			First(&model).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookingNotFound
			}
			return errors.Wrapf(err, "find booking %s", bookingID)
		}

		if err := tx.Model(&BookingModel{}).Where("id = ?", bookingID).
			Update("status", BookingStatusCancelled).Error; err != nil {
			return errors.Wrapf(err, "cancel booking %s", bookingID)
		}

		res := tx.Model(&TicketTypeModel{}).
			Where("event_id = ? AND ticket_id = ?", model.EventID, model.TicketTypeID).
			UpdateColumn("remaining", gorm.Expr("remaining + ?", model.Quantity))
		if res.Error != nil {
			return errors.Wrap(res.Error, "restore remaining")
		}
		if res.RowsAffected == 0 {
			return domain.ErrTicketTypeNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ToDomainBooking(&model), nil
}

// SumActiveQuantity 统计一个票种下有效预订的总票数。
func (r *GormEventRepository) SumActiveQuantity(ctx context.Context, eventID, ticketTypeID string) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&BookingModel{}).
		Where("event_id = ? AND ticket_type_id = ? AND status = ?", eventID, ticketTypeID, BookingStatusConfirmed).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrapf(err, "sum bookings for %s/%s", eventID, ticketTypeID)
	}
	return int(total), nil
}
