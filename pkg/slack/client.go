package slack

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"AttendanceBot/config"
	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/logger"
)

// Client Slack 网关接口。所有失败都包装为 errors.GatewayUnavailable，不做重试。
type Client interface {
	// ListChannels 列出公开与私有频道（自动翻页）
	ListChannels(ctx context.Context) ([]model.Channel, error)
	// FindChannel 按名称查找频道，不存在时返回 errors.ChannelNotFound
	FindChannel(ctx context.Context, name string) (model.Channel, error)
	// ListChannelMembers 频道成员 ID 列表
	ListChannelMembers(ctx context.Context, channelID string) ([]string, error)
	// GetUserProfile 单个成员资料
	GetUserProfile(ctx context.Context, userID string) (model.Member, error)
	// ResolveMany 批量解析成员资料，单个失败会被跳过，结果保持输入顺序
	ResolveMany(ctx context.Context, userIDs []string) ([]model.Member, error)
	// FetchHistory 拉取 oldest 之后的频道消息
	FetchHistory(ctx context.Context, channelID string, oldest time.Time) ([]model.RawMessage, error)
	// PostMessage 发送消息，Title 作为通知的纯文本回退
	PostMessage(ctx context.Context, channelID string, msg model.FormattedMessage) error
}

var (
	slackClient Client
	slackOnce   sync.Once
)

// Init 初始化全局 Slack 客户端
func Init() error {
	slackOnce.Do(func() {
		cfg := config.Cfg
		slackClient = NewWebClient(Options{
			Token:              cfg.SlackBotToken,
			APIURL:             cfg.SlackAPIURL,
			ProfileConcurrency: cfg.ProfileLookupConcurrency,
			HistoryMaxPages:    cfg.HistoryMaxPages,
		})

		logger.Logger.Info("Slack client initialized successfully",
			zap.String("api_url", cfg.SlackAPIURL),
			zap.Int("profile_concurrency", cfg.ProfileLookupConcurrency),
		)
	})

	return nil
}

func GetClient() Client {
	if slackClient == nil {
		panic("Slack client not initialized, call slack.Init() first")
	}
	return slackClient
}
