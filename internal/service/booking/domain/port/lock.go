// internal/service/booking/domain/port/lock.go
package port

import "context"

// Lock 是一次获取尝试对应的互斥锁实例。
type Lock interface {
	Acquire(ctx context.Context, blocking bool, maxRetries int) (bool, error)
	Release(ctx context.Context) (bool, error)
}

// LockFactory 为资源创建锁实例。每次获取尝试都用新的实例
// （owner token 标识的就是这一次获取）。
type LockFactory interface {
	NewLock(resource string) Lock
}
