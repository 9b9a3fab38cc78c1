// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger 是全局默认的 zerolog 实例。
// 各服务在启动时通过 Init 注入自己的 service 字段。
var Logger = log.Logger

// Init 初始化全局日志配置。
// 所有服务共享同一套字段约定，方便日志聚合后按 service 维度过滤。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
	log.Logger = Logger
}

// Ctx 返回一个绑定了追踪上下文的 logger。
// 如果 ctx 中带有 zerolog 的 logger 则直接复用，否则回退到全局实例。
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &Logger
}
