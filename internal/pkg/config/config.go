// internal/pkg/config/config.go
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 汇总了所有服务共享的配置。
// 配置来源优先级: 环境变量 > yaml 文件 > 默认值。
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	// BookingPolicy 是一条 CEL 表达式，在启动时编译。
	// 返回 true 表示允许本次预订请求进入核心流程。
	BookingPolicy        string `yaml:"bookingPolicy"`
	MaxTicketsPerRequest int    `yaml:"maxTicketsPerRequest"`
	// LockTTLSeconds 是分布式锁的自动过期时间。
	LockTTLSeconds     int `yaml:"lockTtlSeconds"`
	LockMaxRetries     int `yaml:"lockMaxRetries"`
	LockRetryDelayMs   int `yaml:"lockRetryDelayMs"`
	TaskResultTTLSecs  int `yaml:"taskResultTtlSeconds"`
	WorkerPopTimeoutMs int `yaml:"workerPopTimeoutMs"`
}

type InfraConfig struct {
	Redis  RedisConfig  `yaml:"redis"`
	Mysql  MysqlConfig  `yaml:"mysql"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Jaeger JaegerConfig `yaml:"jaeger"`
	Nacos  NacosConfig  `yaml:"nacos"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type MysqlConfig struct {
	DSN string `yaml:"dsn"`
}

type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	NotificationTopic string   `yaml:"notificationTopic"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

// Default 返回一套可以在本地 docker-compose 环境直接跑起来的配置。
func Default() Config {
	return Config{
		App: AppConfig{
			BookingPolicy:        "quantity >= 1 && quantity <= max_per_request",
			MaxTicketsPerRequest: 10,
			LockTTLSeconds:       5,
			LockMaxRetries:       100,
			LockRetryDelayMs:     100,
			TaskResultTTLSecs:    3600,
			WorkerPopTimeoutMs:   5000,
		},
		Infra: InfraConfig{
			Redis:  RedisConfig{Addr: "localhost:6379"},
			Mysql:  MysqlConfig{DSN: "root:root@tcp(localhost:3306)/tixhub?charset=utf8mb4&parseTime=True&loc=Local"},
			Kafka:  KafkaConfig{Brokers: []string{"localhost:9092"}, NotificationTopic: "notifications"},
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			Nacos:  NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
		},
	}
}

// Load 读取配置文件并叠加环境变量。
// path 为空时只使用默认值和环境变量。
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides 叠加环境变量，保持和 yaml 字段一一对应。
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Infra.Redis.Password = v
	}
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.Addrs = v
		cfg.Infra.Nacos.Enabled = true
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
}
