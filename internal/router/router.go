package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"AttendanceBot/config"
	"AttendanceBot/internal/handler"
	"AttendanceBot/internal/middleware"
)

func Register(h *server.Hertz, slash *handler.SlashHandler) {
	cfg := config.Cfg

	h.Use(middleware.RequestIDMiddleware())
	h.Use(middleware.RecoverMiddleware(cfg.IsProduction()))
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/", handler.Banner)
	h.GET("/healthz", handler.Health)

	slack := h.Group("/slack")
	slack.Use(middleware.SlackVerifyMiddleware(cfg.SlackSigningSecret, cfg.SlackVerifyDisabled))
	if cfg.RateLimitEnabled {
		slack.Use(middleware.RateLimitMiddleware(middleware.SlashRateLimitConfig(cfg.RateLimitWindow, cfg.RateLimitMax)))
	}
	{
		slack.POST("/command", slash.Handle)
	}
}
