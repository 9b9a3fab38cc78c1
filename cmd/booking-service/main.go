// cmd/booking-service/main.go
package main

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"tixhub/internal/inventory"
	"tixhub/internal/pkg/bootstrap"
	"tixhub/internal/pkg/logger"
	redispkg "tixhub/internal/pkg/redis"
	"tixhub/internal/service/booking/application"
	"tixhub/internal/service/booking/infrastructure"
	"tixhub/internal/service/booking/interfaces"
	"tixhub/internal/service/consistency"
	"tixhub/internal/task"
)

const serviceName = "booking-service"

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	redisClient, err := redispkg.NewClient(context.Background(), cfg.Infra.Redis)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize redis client")
	}

	db, err := infrastructure.OpenMysql(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize mysql")
	}

	policy, err := infrastructure.NewCELPolicyAdapter(cfg.App.BookingPolicy)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to compile booking policy")
	}

	rdb := redisClient.GetClient()
	repo := infrastructure.NewGormEventRepository(db)
	store := inventory.NewStore(rdb)
	locks := infrastructure.NewRedisLockFactory(redisClient,
		time.Duration(cfg.App.LockTTLSeconds)*time.Second,
		time.Duration(cfg.App.LockRetryDelayMs)*time.Millisecond,
	)
	queue := task.NewQueue(rdb, task.WithResultTTL(time.Duration(cfg.App.TaskResultTTLSecs)*time.Second))

	service := application.NewBookingApplicationService(
		repo, store, locks, queue, policy,
		otel.Tracer(serviceName),
		cfg.App.LockMaxRetries,
	)
	checker := consistency.NewChecker(store, repo)
	handler := interfaces.NewBookingHandler(service, checker)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8080,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			if err := redisClient.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("Error closing redis client")
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	})
}
