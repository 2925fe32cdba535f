package handler

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"

	"AttendanceBot/storage/mq"
	"AttendanceBot/storage/redis"
)

// Banner 存活提示
// GET /
func Banner(ctx context.Context, c *app.RequestContext) {
	c.String(http.StatusOK, "Attendance bot is running.")
}

type healthResponse struct {
	Status string `json:"status"`
	Redis  bool   `json:"redis"`
	Queue  bool   `json:"queue"`
}

// Health 健康检查
// GET /healthz
func Health(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Redis:  redis.Enabled(),
		Queue:  mq.Enabled(),
	})
}
