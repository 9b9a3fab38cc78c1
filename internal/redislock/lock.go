// internal/redislock/lock.go
package redislock

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tixhub/internal/pkg/logger"
	"tixhub/internal/pkg/metrics"
	redispkg "tixhub/internal/pkg/redis"
)

const lockPrefix = "lock:"

// releaseScriptName 是释放脚本在共享脚本注册表中的名字。
const releaseScriptName = "lock_release"

// releaseScript 实现原子的 compare-and-delete：只有当 key 的当前值
// 等于自己的 owner token 时才删除。分开的 GET+DEL 会误删过期后被
// 其他 owner 重新获取的锁，必须在一个脚本里完成。
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`

const (
	DefaultTTL        = 5 * time.Second
	DefaultRetryDelay = 100 * time.Millisecond
	DefaultMaxRetries = 100
)

// Lock 是一次获取尝试对应的分布式锁实例。
// token 在创建时生成，唯一标识这一次获取；锁依赖 TTL 自动过期
// 来保证持有者崩溃后的活性。
type Lock struct {
	client     *redispkg.Client
	key        string
	token      string
	ttl        time.Duration
	retryDelay time.Duration
	locked     bool
}

type Option func(*Lock)

func WithTTL(ttl time.Duration) Option {
	return func(l *Lock) { l.ttl = ttl }
}

func WithRetryDelay(d time.Duration) Option {
	return func(l *Lock) { l.retryDelay = d }
}

// New 创建一个作用于 resource 的锁实例。
// resource 形如 "event:{eventId}:ticket:{ticketTypeId}"，
// 实际的 Redis key 会带上 "lock:" 前缀。
// 释放脚本注册进 client 的脚本注册表，重复注册是幂等的。
func New(client *redispkg.Client, resource string, opts ...Option) *Lock {
	_ = client.LoadScriptFromContent(releaseScriptName, releaseScript)
	l := &Lock{
		client:     client,
		key:        lockPrefix + resource,
		token:      uuid.New().String(),
		ttl:        DefaultTTL,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key 返回锁在 Redis 中的完整 key。
func (l *Lock) Key() string { return l.key }

// Token 返回本次获取的 owner token。
func (l *Lock) Token() string { return l.token }

// Acquire 尝试通过 SET NX EX 获取锁。
// 非阻塞模式下失败立即返回 false；阻塞模式下最多重试 maxRetries 次，
// 每次间隔 retryDelay，重试耗尽后返回 false（调用方必须视为
// "无法串行化，放弃本次操作"）。
func (l *Lock) Acquire(ctx context.Context, blocking bool, maxRetries int) (bool, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for retries := 0; retries < maxRetries; retries++ {
		acquired, err := l.client.GetClient().SetNX(ctx, l.key, l.token, l.ttl).Result()
		if err != nil {
			return false, err
		}
		if acquired {
			l.locked = true
			logger.Ctx(ctx).Debug().Str("key", l.key).Str("owner", l.token).Msg("Lock acquired")
			return true, nil
		}
		if !blocking {
			return false, nil
		}

		metrics.LockRetries.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}

	metrics.LockFailures.Inc()
	logger.Ctx(ctx).Warn().Str("key", l.key).Int("retries", maxRetries).Msg("Failed to acquire lock")
	return false, nil
}

// Release 原子释放锁。只有本实例成功获取过且 key 仍然由本 token
// 持有时才会删除；其它情况（从未获取、已过期并被他人重新获取）
// 返回 false 且不做任何删除。
func (l *Lock) Release(ctx context.Context) (bool, error) {
	if !l.locked {
		return false, nil
	}

	result, err := l.client.RunScript(ctx, releaseScriptName, []string{l.key}, l.token)
	if err != nil {
		return false, err
	}

	deleted, _ := result.(int64)
	if deleted == 0 {
		logger.Ctx(ctx).Warn().Str("key", l.key).Str("owner", l.token).Msg("Failed to release lock: not owned")
		return false, nil
	}

	l.locked = false
	logger.Ctx(ctx).Debug().Str("key", l.key).Str("owner", l.token).Msg("Lock released")
	return true, nil
}
