package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"AttendanceBot/internal/command"
	"AttendanceBot/internal/model"
	"AttendanceBot/internal/report"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/slack"
)

// Dispatcher 执行一条命令消息并把回复发到 Slack
type Dispatcher struct {
	router        *command.Router
	gateway       slack.Client
	reports       *ReportService
	targetChannel string
	timeout       time.Duration
}

func NewDispatcher(router *command.Router, gateway slack.Client, reports *ReportService, targetChannel string, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		router:        router,
		gateway:       gateway,
		reports:       reports,
		targetChannel: targetChannel,
		timeout:       timeout,
	}
}

// Execute 报表广播到目标频道，其余回复发回发起频道（定时任务没有发起频道，回退到目标频道）。
// 返回的错误只表示回复没能送达。
func (d *Dispatcher) Execute(ctx context.Context, msg model.CommandMessage) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	now := time.Now()
	if msg.IssuedAt != "" {
		if t, err := time.Parse(time.RFC3339, msg.IssuedAt); err == nil {
			now = t
		}
	}

	reply := d.router.Handle(ctx, command.Request{
		Text:     msg.Text,
		UserID:   msg.UserID,
		UserName: msg.UserName,
		Key:      msg.MessageID,
	}, now)

	channelID, err := d.destination(ctx, msg, reply)
	if err != nil {
		// 目标频道不可用时尽量把错误告诉发起人
		if msg.ChannelID != "" {
			if postErr := d.gateway.PostMessage(ctx, msg.ChannelID, report.Error(err)); postErr != nil {
				logger.Logger.Error("Failed to post error reply", zap.String("message_id", msg.MessageID), zap.Error(postErr))
			}
		}
		return fmt.Errorf("failed to resolve reply channel: %w", err)
	}

	if err := d.gateway.PostMessage(ctx, channelID, reply.Message); err != nil {
		return fmt.Errorf("failed to post reply: %w", err)
	}

	logger.Logger.Info("Command reply posted",
		zap.String("message_id", msg.MessageID),
		zap.String("source", string(msg.Source)),
		zap.String("action", string(reply.Action)),
		zap.String("channel_id", channelID),
		zap.Bool("broadcast", reply.Broadcast),
	)
	return nil
}

func (d *Dispatcher) destination(ctx context.Context, msg model.CommandMessage, reply command.Reply) (string, error) {
	if !reply.Broadcast && msg.ChannelID != "" {
		return msg.ChannelID, nil
	}
	target, err := d.reports.ResolveChannel(ctx, d.targetChannel)
	if err != nil {
		return "", err
	}
	return target.ID, nil
}
