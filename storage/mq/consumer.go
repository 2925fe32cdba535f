package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/logger"
	pkgmq "AttendanceBot/pkg/mq"
)

type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	Handler       MessageHandler
}

// Ack 处理结果到投递确认的映射
type Ack int

const (
	AckDone    Ack = iota // 成功或无需处理
	AckRequeue            // 首次失败，重新入队
	AckDrop               // 重投后再次失败，丢弃
)

// Decide 根据处理结果决定确认方式，每条消息最多重投一次
func Decide(err error, redelivered bool) Ack {
	switch {
	case err == nil, errors.IsSkipMessageError(err):
		return AckDone
	case redelivered:
		return AckDrop
	default:
		return AckRequeue
	}
}

// Consume 阻塞消费直到 ctx 取消或连接关闭
func Consume(ctx context.Context, opts ConsumeOptions) error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if opts.PrefetchCount > 0 {
		if err := ch.Qos(opts.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", opts.PrefetchCount),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer %s: delivery channel closed", opts.ConsumerTag)
			}
			handle(ctx, opts, msg)
		}
	}
}

func handle(ctx context.Context, opts ConsumeOptions, msg amqp.Delivery) {
	ctx, span := pkgmq.StartDelivery(ctx, opts.Queue, msg)
	err := opts.Handler(ctx, msg.Body)
	if err != nil && !errors.IsSkipMessageError(err) {
		logger.Logger.Error("Failed to process message",
			zap.String("queue", opts.Queue),
			zap.String("message_id", msg.MessageId),
			zap.Bool("redelivered", msg.Redelivered),
			zap.Error(err),
		)
	}

	var ackErr error
	switch Decide(err, msg.Redelivered) {
	case AckDone:
		span.End(ctx, "done", nil)
		ackErr = msg.Ack(false)
	case AckRequeue:
		span.End(ctx, "requeue", err)
		ackErr = msg.Nack(false, true)
	case AckDrop:
		span.End(ctx, "drop", err)
		ackErr = msg.Nack(false, false)
	}
	if ackErr != nil {
		logger.Logger.Warn("Failed to acknowledge message",
			zap.String("queue", opts.Queue),
			zap.String("message_id", msg.MessageId),
			zap.Error(ackErr),
		)
	}
}
