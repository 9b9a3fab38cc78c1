// cmd/task-worker/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tixhub/internal/pkg/bootstrap"
	"tixhub/internal/pkg/logger"
	"tixhub/internal/pkg/mq"
	redispkg "tixhub/internal/pkg/redis"
	"tixhub/internal/service/booking/domain/port"
	"tixhub/internal/service/booking/infrastructure"
	"tixhub/internal/task"
)

const serviceName = "task-worker"

// main 组装任务 worker：注册全部 handler 后进入 BRPOP 消费循环。
// HTTP 端口只暴露 healthz 和 metrics。
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
	repo := infrastructure.NewGormEventRepository(db)

	kafkaWriter := mq.NewWriter(cfg.Infra.Kafka.Brokers)

	queue := task.NewQueue(redisClient.GetClient(),
		task.WithResultTTL(time.Duration(cfg.App.TaskResultTTLSecs)*time.Second))
	worker := task.NewWorker(queue,
		task.WithPopTimeout(time.Duration(cfg.App.WorkerPopTimeoutMs)*time.Millisecond))

	worker.Register(port.TaskSendEmail, infrastructure.SendEmailHandler)
	worker.Register(port.TaskBookingNotification,
		infrastructure.NewBookingNotificationHandler(kafkaWriter, cfg.Infra.Kafka.NotificationTopic))
	worker.Register(port.TaskGenerateReport, infrastructure.NewSalesReportHandler(repo))

	workerCtx, stopWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8082,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.Handle("/metrics", promhttp.Handler())
		},
		OnShutdown: func(ctx context.Context) {
			stopWorker()
			if err := kafkaWriter.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("Error closing kafka writer")
			}
			if err := redisClient.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("Error closing redis client")
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	})
}
