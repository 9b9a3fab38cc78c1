// internal/service/booking/infrastructure/lock_factory.go
package infrastructure

import (
	"time"

	redispkg "tixhub/internal/pkg/redis"
	"tixhub/internal/redislock"
	"tixhub/internal/service/booking/domain/port"
)

// RedisLockFactory 是 port.LockFactory 的 Redis 实现。
type RedisLockFactory struct {
	client     *redispkg.Client
	ttl        time.Duration
	retryDelay time.Duration
}

func NewRedisLockFactory(client *redispkg.Client, ttl, retryDelay time.Duration) *RedisLockFactory {
	return &RedisLockFactory{client: client, ttl: ttl, retryDelay: retryDelay}
}

// NewLock 为资源创建一个新的锁实例，owner token 随实例生成。
func (f *RedisLockFactory) NewLock(resource string) port.Lock {
	return redislock.New(f.client, resource,
		redislock.WithTTL(f.ttl),
		redislock.WithRetryDelay(f.retryDelay),
	)
}
