package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/config"
	"go.uber.org/zap"

	cfgpkg "AttendanceBot/config"
	"AttendanceBot/internal/cache"
	"AttendanceBot/internal/handler"
	"AttendanceBot/internal/middleware"
	"AttendanceBot/internal/router"
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
	cfgpkg.MustLoad()
	cfg := &cfgpkg.Cfg

	logger.Init("server")
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
		shutdown, err := otel.Setup(ctx, otel.ConfigFrom(cfg, cfg.ServiceName))
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

	// 初始化存储层，记得关闭外部连接
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(cfg.SnowflakeMachineID, cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	if err := slack.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize Slack client", zap.Error(err))
	}
	cache.Configure(cfg.ChannelCacheTTL, cfg.ProfileCacheTTL)

	if err := middleware.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize middlewares", zap.Error(err))
	}

	// 队列启用时命令交给 worker，否则在本进程执行
	submit := handler.QueueSubmitter()
	if !mq.Enabled() {
		store, err := service.NewLedger(cfg)
		if err != nil {
			logger.Logger.Fatal("Failed to initialize leave ledger", zap.Error(err))
		}
		dispatcher, err := service.NewDispatcherFromConfig(cfg, slack.GetClient(), store)
		if err != nil {
			logger.Logger.Fatal("Failed to initialize command dispatcher", zap.Error(err))
		}
		submit = handler.InProcessSubmitter(dispatcher)
	}

	logger.Logger.Info("Server starting",
		zap.String("service", cfg.ServiceName),
		zap.String("port", cfg.ServerPort),
		zap.String("environment", cfg.Environment),
		zap.Bool("queue", mq.Enabled()),
	)

	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	opts := []config.Option{server.WithHostPorts(addr)}
	var tracingMw app.HandlerFunc
	if cfg.OTelEnabled {
		tracer, mw := middleware.NewServerTracerConfig()
		opts = append(opts, tracer)
		tracingMw = mw
	}
	h := server.Default(opts...)
	if tracingMw != nil {
		h.Use(tracingMw)
	}

	router.Register(h, handler.NewSlashHandler(submit))

	// 优雅关闭：在单独的 goroutine 中监听关闭信号并调用 Shutdown
	go func() {
		<-ctx.Done()
		logger.Logger.Info("Initiating graceful shutdown...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown HTTP server", zap.Error(err))
		}
	}()

	logger.Logger.Info("HTTP server listening", zap.String("addr", addr))

	h.Spin()

	logger.Logger.Info("Server shutting down gracefully")
}
