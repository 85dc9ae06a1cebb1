package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"projectflow/config"
	"projectflow/internal/mqhandler"
	"projectflow/internal/repository"
	pkgconfig "projectflow/pkg/config"
	"projectflow/pkg/db"
	"projectflow/pkg/logger"
	"projectflow/pkg/mq"
	"projectflow/pkg/otel"
	redisclient "projectflow/pkg/redis"
	"projectflow/pkg/util"
)

const version = "0.1.0"

const (
	notificationsQueue = "notifications.inbox.q"
	notificationsKey   = "user.*.notifications"
	activityQueue      = "project.activity.q"
	activityKey        = "project.#"
)

func main() {
	cfg, err := config.Load(pkgconfig.GetConfigEnv(), pkgconfig.GetEnv("CONFIG_DIR", "config"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("Starting projectflow worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	shutdownTracing, err := otel.Init(cfg.Otel, version, log)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	dbConn, err := db.NewConnection(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}
	log.Info("Database connection established")

	// Redis：去重 + 重试计数
	rdb, err := redisclient.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	deduper := util.NewDeduper(rdb, 24*time.Hour, log)
	retries := util.NewRetryCounter(rdb, time.Hour)

	notificationHandler := mqhandler.NewNotificationHandler(repository.NewNotificationRepository(dbConn), deduper, retries, log)
	activityHandler := mqhandler.NewActivityHandler(repository.NewActivityRepository(dbConn), retries, log)

	var wg sync.WaitGroup
	consume := func(queue, bindingKey string, h mq.MessageHandler) {
		log.Info("Initializing consumer",
			zap.String("queue", queue),
			zap.String("binding_key", bindingKey))
		consumer, err := mq.NewConsumer(cfg.MQ.URL, queue, bindingKey, log)
		if err != nil {
			log.Fatal("Failed to init consumer", zap.String("queue", queue), zap.Error(err))
		}
		consumer.SetHandler(h)

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer consumer.Close()
			if err := consumer.StartConsuming(ctx); err != nil {
				log.Error("Consumer stopped", zap.String("queue", queue), zap.Error(err))
				stop()
			}
		}()
	}

	consume(notificationsQueue, notificationsKey, notificationHandler.Handle)
	consume(activityQueue, activityKey, activityHandler.Handle)

	log.Info("projectflow worker is running")
	<-ctx.Done()

	log.Info("Shutting down worker gracefully...")
	wg.Wait()
	log.Info("projectflow worker shutdown complete")
}
