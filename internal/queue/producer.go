package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/snowflake"
	"AttendanceBot/storage/mq"
)

// PublishCommand 把命令消息投递到命令队列，没有 MessageID 时用 snowflake 生成
func PublishCommand(ctx context.Context, msg *model.CommandMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.CommandID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID", zap.Error(err))
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = id
	}

	if err := mq.PublishMessage(ctx, mq.CommandExchange, mq.CommandRoutingKey, msg.MessageID, msg); err != nil {
		logger.Logger.Error("Failed to publish command message",
			zap.String("message_id", msg.MessageID),
			zap.String("source", string(msg.Source)),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published command message",
		zap.String("message_id", msg.MessageID),
		zap.String("source", string(msg.Source)),
		zap.String("text", msg.Text),
	)
	return nil
}
