package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"AttendanceBot/config"
	"AttendanceBot/pkg/logger"
)

// 命令消息拓扑：direct 交换机 + 单一持久队列
const (
	CommandExchange   = "attendance.direct"
	CommandRoutingKey = "attendance.command"
	CommandQueue      = "attendance.command"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

// Init 建立连接并声明拓扑，QUEUE_ENABLED=false 时跳过
func Init() error {
	if !config.Cfg.QueueEnabled {
		logger.Logger.Info("RabbitMQ disabled, commands run in-process")
		return nil
	}

	connOnce.Do(func() {
		c, err := amqp.Dial(config.Cfg.GetRabbitMQURL())
		if err != nil {
			connErr = fmt.Errorf("failed to dial RabbitMQ: %w", err)
			return
		}

		if err := declareTopology(c); err != nil {
			_ = c.Close()
			connErr = err
			return
		}

		conn = c
		logger.Logger.Info("RabbitMQ initialized successfully",
			zap.String("exchange", CommandExchange),
			zap.String("queue", CommandQueue),
		)
	})

	return connErr
}

func declareTopology(c *amqp.Connection) error {
	ch, err := c.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		CommandExchange,
		amqp.ExchangeDirect,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", CommandExchange, err)
	}

	if _, err := ch.QueueDeclare(
		CommandQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", CommandQueue, err)
	}

	if err := ch.QueueBind(CommandQueue, CommandRoutingKey, CommandExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", CommandQueue, err)
	}
	return nil
}

// Enabled 是否已连接 RabbitMQ
func Enabled() bool {
	return conn != nil
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	closePublisher()

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
