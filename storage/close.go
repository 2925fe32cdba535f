package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"AttendanceBot/pkg/logger"
	"AttendanceBot/storage/database"
	"AttendanceBot/storage/mq"
	"AttendanceBot/storage/redis"
)

// Close 按 MQ -> Redis -> Database 的顺序关闭连接，未初始化的部分直接跳过
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	closers := []struct {
		name  string
		close func(context.Context) error
	}{
		{"message queue", mq.Close},
		{"redis", redis.Close},
		{"database", database.Close},
	}
	for _, c := range closers {
		if err := c.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage connection", zap.String("component", c.name), zap.Error(err))
		}
	}

	logger.Logger.Info("All storage connections closed")
}
