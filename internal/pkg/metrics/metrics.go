// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingRequests 统计进入核心流程的预订请求总量，按最终结果分类。
	BookingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tixhub_booking_requests_total",
		Help: "Total number of ticket booking requests by outcome",
	}, []string{"outcome"})

	// StockLevel 是每个票种在 Redis 中的实时剩余库存。
	StockLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tixhub_stock_level",
		Help: "Current ticket stock level in Redis",
	}, []string{"event_id", "ticket_type_id"})

	// LockRetries 统计锁竞争导致的重试次数，是观察热点票种的主要信号。
	LockRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tixhub_lock_acquire_retries_total",
		Help: "Total number of distributed lock acquire retries",
	})

	// LockFailures 统计重试耗尽后放弃的加锁尝试。
	LockFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tixhub_lock_acquire_failures_total",
		Help: "Total number of distributed lock acquisitions that gave up",
	})

	// CompensationsTotal 统计持久化失败后执行的库存补偿次数。
	// 该值持续增长说明持久层不稳定，需要人工关注。
	CompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tixhub_inventory_compensations_total",
		Help: "Total number of inventory compensations after durable write failures",
	})

	// TasksProcessed 统计后台 worker 处理的任务数，按任务名和结果分类。
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tixhub_tasks_processed_total",
		Help: "Total number of background tasks processed by name and status",
	}, []string{"task", "status"})
)
