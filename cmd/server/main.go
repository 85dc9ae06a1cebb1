package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"projectflow/config"
	"projectflow/internal/handler"
	"projectflow/internal/httpserver"
	"projectflow/internal/relay"
	"projectflow/internal/repository"
	"projectflow/internal/workflow"
	"projectflow/pkg/circuitbreaker"
	pkgconfig "projectflow/pkg/config"
	"projectflow/pkg/db"
	"projectflow/pkg/eventbus"
	"projectflow/pkg/logger"
	"projectflow/pkg/mq"
	"projectflow/pkg/otel"
	"projectflow/pkg/outbox"
)

const version = "0.1.0"

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

	log.Info("Starting projectflow server...",
		zap.String("port", cfg.Server.Port),
		zap.Bool("mq_enabled", cfg.MQ.Enabled),
		zap.Bool("db_enabled", cfg.DB.Enabled),
	)

	shutdownTracing, err := otel.Init(cfg.Otel, version, log)
	if err != nil {
		log.Fatal("Failed to init tracing", zap.Error(err))
	}
	defer shutdownTracing()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bus := eventbus.New(log)
	registry := workflow.NewRegistry(bus, log)
	checks := map[string]httpserver.ReadyCheck{}
	handlers := httpserver.Handlers{
		Projects: handler.NewProjectHandler(registry, log),
	}

	// DB（可选）：notification inbox、activity log、outbox
	var outboxRepo *outbox.Repository
	if cfg.DB.Enabled {
		dbConn, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			log.Fatal("DB initialization failed", zap.Error(err))
		}
		defer dbConn.Close()
		if err := db.EnsureSchema(ctx, dbConn); err != nil {
			log.Fatal("Failed to ensure schema", zap.Error(err))
		}
		checks["db"] = dbConn.Ping

		outboxRepo = outbox.NewRepository(dbConn)
		handlers.Inbox = handler.NewInboxHandler(
			repository.NewNotificationRepository(dbConn),
			repository.NewActivityRepository(dbConn),
			registry, log)
		handlers.Admin = handler.NewAdminHandler(outbox.NewReplayService(outboxRepo), log)
	}

	// MQ（可选）：bus → events exchange
	if cfg.MQ.Enabled {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		checks["mq"] = func(context.Context) error {
			if !publisher.IsConnected() {
				return mq.ErrNotConnected
			}
			return nil
		}

		breakerCfg := circuitbreaker.DefaultConfig()
		breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
			log.Warn("MQ circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		}
		fwd := relay.New(bus, publisher, circuitbreaker.NewCircuitBreaker(breakerCfg), log)
		defer fwd.Close()

		if outboxRepo != nil {
			fwd.WithOutbox(outboxRepo)
			dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
				WithInterval(cfg.Outbox.Interval).
				WithMaxRetries(cfg.Outbox.MaxRetries).
				WithBatchSize(cfg.Outbox.BatchSize)
			go dispatcher.Start(ctx)
		}
		registry.OnOpen(fwd.Attach)
	}

	router := httpserver.NewRouter(handlers, cfg.JWT.Secret, log, checks)
	srv := httpserver.NewServer(cfg.Server.Port, router, log)
	serveErr := srv.Start()

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}

	log.Info("Shutting down projectflow server gracefully...")
	stop()
	srv.Shutdown(30 * time.Second)
	log.Info("projectflow server shutdown complete")
}
