package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"AttendanceBot/internal/middleware"
	"AttendanceBot/internal/model"
	"AttendanceBot/internal/queue"
	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/response"
)

const (
	ackText    = "Generating leave summary..."
	failedText = "⚠️ Could not start the command right now. Please try again in a moment."
)

// Submitter 把斜杠命令交给后台执行
type Submitter func(ctx context.Context, msg *model.CommandMessage) error

// QueueSubmitter 经 RabbitMQ 交给 worker
func QueueSubmitter() Submitter {
	return queue.PublishCommand
}

// InProcessSubmitter 未启用队列时在本进程的 goroutine 中执行
func InProcessSubmitter(exec queue.Executor) Submitter {
	return func(ctx context.Context, msg *model.CommandMessage) error {
		cmd := *msg
		go func() {
			if err := exec.Execute(context.Background(), cmd); err != nil {
				logger.Logger.Error("Failed to execute slash command",
					zap.String("text", cmd.Text),
					zap.String("user_id", cmd.UserID),
					zap.Error(err),
				)
			}
		}()
		return nil
	}
}

type SlashHandler struct {
	submit Submitter
	now    func() time.Time
}

func NewSlashHandler(submit Submitter) *SlashHandler {
	return &SlashHandler{submit: submit, now: time.Now}
}

// Handle 立即回执，真正的结果由后台异步发到频道
// POST /slack/command
func (h *SlashHandler) Handle(ctx context.Context, c *app.RequestContext) {
	command := c.PostForm("command")
	if command == "" {
		response.BindError(ctx, c, fmt.Errorf("%w: missing command", errors.InvalidRequest))
		return
	}

	msg := &model.CommandMessage{
		Source:    model.CommandSourceSlash,
		Text:      c.PostForm("text"),
		UserID:    c.PostForm("user_id"),
		UserName:  c.PostForm("user_name"),
		ChannelID: c.PostForm("channel_id"),
		TeamID:    c.PostForm("team_id"),
		IssuedAt:  h.now().Format(time.RFC3339),
	}

	if err := h.submit(ctx, msg); err != nil {
		logger.Logger.Error("Failed to submit slash command",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("command", command),
			zap.String("text", msg.Text),
			zap.Error(err),
		)
		response.Slash(ctx, c, response.ResponseTypeEphemeral, failedText)
		return
	}

	logger.Logger.Info("Slash command accepted",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("command", command),
		zap.String("text", msg.Text),
		zap.String("user_id", msg.UserID),
		zap.String("channel_id", msg.ChannelID),
	)
	response.Slash(ctx, c, response.ResponseTypeEphemeral, ackText)
}
