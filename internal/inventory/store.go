// internal/inventory/store.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"tixhub/internal/pkg/logger"
	"tixhub/internal/pkg/metrics"
)

var (
	// ErrNotInitialized 表示票种从未执行过 Initialize，Redis 中没有计数器。
	ErrNotInitialized = errors.New("inventory not initialized")
	// ErrInvalidData 表示计数器的值无法解析为整数。这是数据损坏，
	// 必须原样上报，绝不能猜一个值继续。
	ErrInvalidData = errors.New("invalid inventory data")
)

// Code 是预留失败的业务原因。
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvalidData  Code = "INVALID_DATA"
	CodeInsufficient Code = "INSUFFICIENT"
)

// ReservationResult 是一次预留尝试的结构化结果。
// 业务性失败（库存不足、未初始化）通过 Success=false + Code 表达，
// 不作为 error 返回。
type ReservationResult struct {
	Success   bool `json:"success"`
	Reserved  int  `json:"reserved,omitempty"`
	Remaining int  `json:"remaining,omitempty"`
	Available int  `json:"available,omitempty"`
	Requested int  `json:"requested,omitempty"`
	Code      Code `json:"error,omitempty"`
}

// Key 返回票种库存计数器在 Redis 中的 key。
// 该格式是对外契约的一部分，线上部署依赖它，不能改动。
func Key(eventID, ticketTypeID string) string {
	return fmt.Sprintf("inventory:event:%s:ticket:%s", eventID, ticketTypeID)
}

// ParseKey 是 Key 的逆运算。不符合计数器 key 格式时返回 ok=false。
func ParseKey(key string) (eventID, ticketTypeID string, ok bool) {
	rest, found := strings.CutPrefix(key, "inventory:event:")
	if !found {
		return "", "", false
	}
	eventID, ticketTypeID, found = strings.Cut(rest, ":ticket:")
	if !found || eventID == "" || ticketTypeID == "" {
		return "", "", false
	}
	return eventID, ticketTypeID, true
}

// LockResource 返回保护该票种的分布式锁资源名（不含 "lock:" 前缀）。
func LockResource(eventID, ticketTypeID string) string {
	return fmt.Sprintf("event:%s:ticket:%s", eventID, ticketTypeID)
}

// Store 是共享 Redis 中的原子库存计数器。
// 计数器是抢票竞争窗口内的短期事实，持久库才是长期事实。
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Initialize 仅在计数器不存在时写入初始值，幂等，可在事件创建的
// 每次重试里安全调用。已存在时返回 false 且不做任何修改。
func (s *Store) Initialize(ctx context.Context, eventID, ticketTypeID string, total int) (bool, error) {
	key := Key(eventID, ticketTypeID)
	created, err := s.rdb.SetNX(ctx, key, strconv.Itoa(total), 0).Result()
	if err != nil {
		return false, fmt.Errorf("failed to initialize inventory %s: %w", key, err)
	}
	if created {
		logger.Ctx(ctx).Info().Str("key", key).Int("total", total).Msg("Initialized inventory")
		metrics.StockLevel.WithLabelValues(eventID, ticketTypeID).Set(float64(total))
	}
	return created, nil
}

// Available 读取当前剩余库存。
func (s *Store) Available(ctx context.Context, eventID, ticketTypeID string) (int, error) {
	key := Key(eventID, ticketTypeID)
	val, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, ErrNotInitialized
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read inventory %s: %w", key, err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: key %s holds %q", ErrInvalidData, key, val)
	}
	return count, nil
}

// Reserve 执行 读取 → 充足性检查 → DECRBY。
// 检查和扣减是两次独立的 Redis 操作，调用方必须持有该票种的
// 分布式锁来串行化它们；防止两个请求同时通过检查的是锁，
// 不是 DECRBY 自身的原子性。
func (s *Store) Reserve(ctx context.Context, eventID, ticketTypeID string, quantity int, requesterID string) (ReservationResult, error) {
	key := Key(eventID, ticketTypeID)

	available, err := s.Available(ctx, eventID, ticketTypeID)
	if errors.Is(err, ErrNotInitialized) {
		logger.Ctx(ctx).Error().Str("key", key).Msg("Inventory not initialized")
		return ReservationResult{Success: false, Code: CodeNotFound, Requested: quantity}, nil
	}
	if errors.Is(err, ErrInvalidData) {
		logger.Ctx(ctx).Error().Str("key", key).Err(err).Msg("Invalid inventory value")
		return ReservationResult{Success: false, Code: CodeInvalidData, Requested: quantity}, nil
	}
	if err != nil {
		return ReservationResult{}, err
	}

	if available < quantity {
		logger.Ctx(ctx).Warn().
			Str("key", key).
			Int("requested", quantity).
			Int("available", available).
			Msg("Insufficient tickets")
		return ReservationResult{
			Success:   false,
			Code:      CodeInsufficient,
			Available: available,
			Requested: quantity,
		}, nil
	}

	remaining, err := s.rdb.DecrBy(ctx, key, int64(quantity)).Result()
	if err != nil {
		return ReservationResult{}, fmt.Errorf("failed to decrement inventory %s: %w", key, err)
	}

	metrics.StockLevel.WithLabelValues(eventID, ticketTypeID).Set(float64(remaining))
	logger.Ctx(ctx).Info().
		Str("key", key).
		Int("quantity", quantity).
		Int64("remaining", remaining).
		Str("requester", requesterID).
		Msg("Tickets reserved")

	return ReservationResult{
		Success:   true,
		Reserved:  quantity,
		Remaining: int(remaining),
	}, nil
}

// Release 原子加回 quantity 张票，用于补偿和用户取消。
// INCRBY 本身是原子的，且增加库存不会造成超卖，所以不需要锁。
func (s *Store) Release(ctx context.Context, eventID, ticketTypeID string, quantity int, reason string) (int, error) {
	key := Key(eventID, ticketTypeID)
	newCount, err := s.rdb.IncrBy(ctx, key, int64(quantity)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment inventory %s: %w", key, err)
	}

	metrics.StockLevel.WithLabelValues(eventID, ticketTypeID).Set(float64(newCount))
	logger.Ctx(ctx).Info().
		Str("key", key).
		Int("quantity", quantity).
		Int64("available", newCount).
		Str("reason", reason).
		Msg("Tickets released")
	return int(newCount), nil
}

// Reconcile 用持久库的值无条件覆盖计数器。
// 只允许持久库 → 缓存这一个方向，durableValue 必须来自权威记录。
func (s *Store) Reconcile(ctx context.Context, eventID, ticketTypeID string, durableValue int) error {
	key := Key(eventID, ticketTypeID)
	if err := s.rdb.Set(ctx, key, strconv.Itoa(durableValue), 0).Err(); err != nil {
		return fmt.Errorf("failed to reconcile inventory %s: %w", key, err)
	}
	metrics.StockLevel.WithLabelValues(eventID, ticketTypeID).Set(float64(durableValue))
	logger.Ctx(ctx).Info().Str("key", key).Int("remaining", durableValue).Msg("Synced inventory from durable store")
	return nil
}
