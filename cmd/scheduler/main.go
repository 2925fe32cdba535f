package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"AttendanceBot/config"
	"AttendanceBot/internal/cache"
	"AttendanceBot/internal/model"
	"AttendanceBot/internal/queue"
	"AttendanceBot/internal/schedule"
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

	logger.Init("scheduler")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if cfg.OTelEnabled {
		shutdown, err := otel.Setup(ctx, otel.ConfigFrom(cfg, cfg.ServiceName+"-scheduler"))
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
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	// 队列启用时投递给 worker，否则直接在调度进程内生成并发送
	publish := schedule.Publisher(queue.PublishCommand)
	if !service.LedgerShared(cfg, mq.Enabled()) {
		logger.Logger.Warn("Queue is disabled and the leave ledger is in memory, daily reports will not show leave filed through the slash command",
			zap.String("ledger_backend", cfg.LedgerBackend),
		)
	}
	if !mq.Enabled() {
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
		publish = func(ctx context.Context, msg *model.CommandMessage) error {
			return dispatcher.Execute(ctx, *msg)
		}
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", cfg.ServiceName+"-scheduler"),
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Timezone),
		zap.String("daily_at", cfg.DailyReportAt),
		zap.String("weekly_at", cfg.WeeklyReportAt),
	)

	s := schedule.NewScheduler(cfg.Location(), publish)

	var wg sync.WaitGroup
	for _, job := range schedule.DefaultJobs(cfg.DailyReportAt, cfg.WeeklyReportAt) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Run(ctx, job); err != nil && ctx.Err() == nil {
				logger.Logger.Error("Report schedule stopped", zap.String("kind", string(job.Kind)), zap.Error(err))
			}
		}()
	}
	wg.Wait()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
