// internal/service/booking/domain/port/policy.go
package port

import "context"

// PolicyFact 是准入策略评估的输入。
// 字段名即策略表达式里的变量名。
type PolicyFact struct {
	Quantity      int     `json:"quantity"`
	MaxPerRequest int     `json:"max_per_request"`
	TotalPrice    float64 `json:"total_price"`
	UserID        string  `json:"user_id"`
	EventID       string  `json:"event_id"`
}

// BookingPolicy 在进入核心流程前评估一次预订请求。
type BookingPolicy interface {
	Allow(ctx context.Context, fact PolicyFact) (bool, error)
}
