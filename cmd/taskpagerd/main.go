package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"taskpager/internal/api"
	"taskpager/internal/config"
	"taskpager/internal/storage/mysql"
	"taskpager/internal/storage/redis"
	"taskpager/internal/task"
	"taskpager/pkg/logger"
)

// main 是 taskpager 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("taskpagerd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	// 存储与 Redis 事件共用同一个客户端，按需建立。
	var redisClient *goredis.Client
	connectRedis := func() (*goredis.Client, error) {
		if redisClient != nil {
			return redisClient, nil
		}
		client, err := redis.Open(ctx, redis.Config{
			Address:  cfg.Storage.Redis.Address,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		redisClient = client
		return client, nil
	}

	store, err := openStore(ctx, cfg, connectRedis)
	if err != nil {
		return err
	}
	publisher, err := openPublisher(cfg, connectRedis)
	if err != nil {
		_ = store.Close()
		return err
	}

	taskService := task.NewService(store, publisher)
	defer func() {
		if err := taskService.Close(); err != nil {
			logger.L().Error("关闭任务存储失败", slog.Any("error", err))
		}
	}()

	if memory, ok := publisher.(*task.MemoryPublisher); ok {
		processor := task.NewProcessor(memory.Events(), task.AuditEventHandler(),
			task.WithProcessorLogger(logger.Named("events")),
		)
		go func() {
			if err := processor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.L().Error("事件处理器异常退出", slog.Any("error", err))
			}
		}()
	}

	logger.L().Info("taskpagerd 启动",
		slog.String("addr", cfg.Server.Address),
		slog.String("store", cfg.Storage.Driver),
		slog.String("events", cfg.Events.Driver),
	)
	server := api.NewServer(cfg.Server.Address, taskService,
		api.WithShutdownTimeout(cfg.Server.ShutdownTimeout()),
	)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.L().Info("taskpagerd 已停止")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, connectRedis func() (*goredis.Client, error)) (task.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return task.NewMemoryStore(), nil
	case "mysql":
		return task.NewMySQLStore(ctx, mysql.Config{
			DSN:             cfg.Storage.MySQL.DSN,
			MaxOpenConns:    cfg.Storage.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.MySQL.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Storage.MySQL.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Storage.MySQL.ConnMaxIdleTimeSeconds) * time.Second,
		})
	case "redis":
		client, err := connectRedis()
		if err != nil {
			return nil, err
		}
		return task.NewRedisStore(client, cfg.Storage.Redis.KeyPrefix)
	default:
		return nil, fmt.Errorf("未知的存储驱动: %s", cfg.Storage.Driver)
	}
}

func openPublisher(cfg *config.Config, connectRedis func() (*goredis.Client, error)) (task.Publisher, error) {
	switch cfg.Events.Driver {
	case "none":
		return nil, nil
	case "memory":
		return task.NewMemoryPublisher(cfg.Events.BufferSize), nil
	case "redis":
		client, err := connectRedis()
		if err != nil {
			return nil, err
		}
		return task.NewRedisPublisher(client, cfg.Events.RedisKey)
	case "rabbitmq":
		return task.NewRabbitMQPublisher(task.RabbitMQConfig{
			URL:        cfg.Events.RabbitMQ.URL,
			Queue:      cfg.Events.RabbitMQ.Queue,
			Durable:    cfg.Events.RabbitMQ.Durable,
			AutoDelete: cfg.Events.RabbitMQ.AutoDelete,
		})
	default:
		return nil, fmt.Errorf("未知的事件驱动: %s", cfg.Events.Driver)
	}
}
