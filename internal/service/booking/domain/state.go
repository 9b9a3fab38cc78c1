// internal/service/booking/domain/state.go
package domain

// State 定义了一次预订在编排流水线中的生命周期状态。
type State string

const (
	StateRequested         State = "REQUESTED"          // 请求已进入核心流程，尚未动任何状态
	StateReserved          State = "RESERVED"           // Redis 计数器已扣减
	StatePersisted         State = "PERSISTED"          // 权威记录已写入
	StateCompleted         State = "COMPLETED"          // 终态：预订成功
	StateReservationFailed State = "RESERVATION_FAILED" // 终态：预留失败，无任何副作用
	StatePersistFailed     State = "PERSIST_FAILED"     // 持久化失败，等待补偿
	StateCompensated       State = "COMPENSATED"        // 计数器已恢复到预留前的值
	StateFailed            State = "FAILED"             // 终态：补偿完成后的失败态
)
