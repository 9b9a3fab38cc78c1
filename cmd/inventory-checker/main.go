// cmd/inventory-checker/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"tixhub/internal/inventory"
	"tixhub/internal/pkg/bootstrap"
	"tixhub/internal/pkg/logger"
	redispkg "tixhub/internal/pkg/redis"
	"tixhub/internal/service/booking/infrastructure"
	"tixhub/internal/service/consistency"
)

const serviceName = "inventory-checker"

// 运维 CLI：对比某个事件的 Redis 计数器和权威记录。
// 默认只读对比；加 -sync 用权威剩余量覆盖计数器。
// 退出码：0 同步，1 不同步，2 执行失败。
func main() {
	eventID := flag.String("event", "", "event ID to check (required)")
	sync := flag.Bool("sync", false, "force counters to the durable remaining values")
	timeout := flag.Duration("timeout", 30*time.Second, "overall execution timeout")
	flag.Parse()

	if *eventID == "" {
		fmt.Fprintln(os.Stderr, "usage: inventory-checker -event <event_id> [-sync]")
		os.Exit(2)
	}

	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	redisClient, err := redispkg.NewClient(ctx, cfg.Infra.Redis)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize redis client")
	}
	defer redisClient.Close()

	db, err := infrastructure.OpenMysql(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize mysql")
	}

	checker := consistency.NewChecker(
		inventory.NewStore(redisClient.GetClient()),
		infrastructure.NewGormEventRepository(db),
	)

	report, err := checker.Compare(ctx, *eventID)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("event", *eventID).Msg("consistency check failed")
	}
	printJSON(report)

	if report.InSync {
		return
	}
	if !*sync {
		os.Exit(1)
	}

	synced, err := checker.Reconcile(ctx, *eventID)
	if err != nil {
		logger.Logger.Fatal().Err(err).Str("event", *eventID).Msg("reconcile failed")
	}
	printJSON(map[string]interface{}{"synced": synced})
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
