package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"AttendanceBot/internal/cache"
	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/metrics"
	"AttendanceBot/storage/mq"
)

// Executor 执行一条命令消息，由 service.Dispatcher 实现
type Executor interface {
	Execute(ctx context.Context, msg model.CommandMessage) error
}

const (
	processingTTL = 10 * time.Minute
	processedTTL  = 48 * time.Hour
)

// CommandHandler 返回命令消息的处理函数。Redis 幂等键保证同一条消息只执行一次，
// 执行失败时清除标记以便重投后再次处理。
func CommandHandler(exec Executor) mq.MessageHandler {
	return func(ctx context.Context, body []byte) error {
		var msg model.CommandMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			metrics.RecordQueueConsume(ctx, mq.CommandQueue, "malformed")
			return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed command message: %v", err)}
		}

		processing, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, processingTTL)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		} else if !processing {
			logger.Logger.Info("Message already processed or being processed, skipping",
				zap.String("message_id", msg.MessageID),
			)
			metrics.RecordQueueConsume(ctx, mq.CommandQueue, "duplicate")
			return &errors.SkipMessageError{Reason: fmt.Sprintf("message %s already processed", msg.MessageID)}
		}

		logger.Logger.Info("Processing command message",
			zap.String("message_id", msg.MessageID),
			zap.String("source", string(msg.Source)),
			zap.String("text", msg.Text),
		)

		if err := exec.Execute(ctx, msg); err != nil {
			if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
				logger.Logger.Warn("Failed to unmark message",
					zap.String("message_id", msg.MessageID),
					zap.Error(unmarkErr),
				)
			}
			metrics.RecordQueueConsume(ctx, mq.CommandQueue, "failed")
			return fmt.Errorf("failed to execute command %s: %w", msg.MessageID, err)
		}

		if err := cache.MarkMessageProcessed(ctx, msg.MessageID, processedTTL); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", msg.MessageID),
				zap.Error(err),
			)
		}
		metrics.RecordQueueConsume(ctx, mq.CommandQueue, "success")
		return nil
	}
}

// StartCommandConsumer 阻塞消费命令队列
func StartCommandConsumer(ctx context.Context, exec Executor) error {
	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:         mq.CommandQueue,
		ConsumerTag:   "attendance_command_consumer",
		PrefetchCount: 1,
		Handler:       CommandHandler(exec),
	})
}

// StartAllConsumers 启动全部消费者，任一退出即返回
func StartAllConsumers(ctx context.Context, exec Executor) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- StartCommandConsumer(ctx, exec)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
