package main

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"AttendanceBot/config"
	"AttendanceBot/internal/cache"
	"AttendanceBot/internal/queue"
	"AttendanceBot/internal/service"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/metrics"
	"AttendanceBot/pkg/otel"
	"AttendanceBot/pkg/slack"
	"AttendanceBot/pkg/snowflake"
	"AttendanceBot/storage"
	"AttendanceBot/storage/mq"
)

func main() {
	config.MustLoad()
	cfg := &config.Cfg

	logger.Init("worker")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if cfg.OTelEnabled {
		shutdown, err := otel.Setup(ctx, otel.ConfigFrom(cfg, cfg.ServiceName+"-worker"))
		if err != nil {
			logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
			}
		}()
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if !mq.Enabled() {
		logger.Logger.Fatal("Worker requires QUEUE_ENABLED=true")
	}

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := slack.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize Slack client", zap.Error(err))
	}
	cache.Configure(cfg.ChannelCacheTTL, cfg.ProfileCacheTTL)

	store, err := service.NewLedger(cfg)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize leave ledger", zap.Error(err))
	}
	dispatcher, err := service.NewDispatcherFromConfig(cfg, slack.GetClient(), store)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize command dispatcher", zap.Error(err))
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", cfg.ServiceName+"-worker"),
		zap.String("environment", cfg.Environment),
	)

	if err := queue.StartAllConsumers(ctx, dispatcher); err != nil && !stderrors.Is(err, context.Canceled) {
		logger.Logger.Error("Consumer stopped", zap.Error(err))
	}

	logger.Logger.Info("Worker service shutting down gracefully")
}
