package middleware

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/response"
	"AttendanceBot/pkg/slack"
)

// SlackUserIDKey 验签通过后写入上下文的 Slack 用户 ID
const SlackUserIDKey = "slack_user_id"

// SlackVerifyMiddleware 校验 Slack 请求签名。disabled 仅用于本地调试。
func SlackVerifyMiddleware(signingSecret string, disabled bool) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if !disabled {
			header := make(http.Header)
			c.Request.Header.VisitAll(func(key, value []byte) {
				header.Add(string(key), string(value))
			})

			if err := slack.VerifyRequest(header, c.Request.Body(), signingSecret); err != nil {
				logger.Logger.Warn("Rejected Slack request",
					zap.String("path", string(c.Path())),
					zap.String("client_ip", c.ClientIP()),
					zap.Error(err),
				)
				response.Error(ctx, c, err)
				c.Abort()
				return
			}
		}

		if userID := c.PostForm("user_id"); userID != "" {
			c.Set(SlackUserIDKey, userID)
		}
		c.Next(ctx)
	}
}

// GetSlackUserID 读取 SlackVerifyMiddleware 写入的用户 ID
func GetSlackUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID := c.GetString(SlackUserIDKey)
	return userID, userID != ""
}
