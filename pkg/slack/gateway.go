package slack

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/breaker"
	"AttendanceBot/pkg/errors"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/pkg/metrics"
)

const (
	channelPageSize = 200
	memberPageSize  = 200
	historyPageSize = 200
)

// 这些系统消息不是成员发言
var ignoredSubtypes = map[string]struct{}{
	"channel_join":    {},
	"channel_leave":   {},
	"channel_topic":   {},
	"channel_purpose": {},
	"channel_name":    {},
}

// Options Web API 客户端参数
type Options struct {
	Token              string
	APIURL             string // 需以 / 结尾，测试时指向 httptest
	ProfileConcurrency int    // ResolveMany 并发度，1 即逐个查询
	HistoryMaxPages    int
	HTTPClient         *http.Client
}

// WebClient 基于 slack-go 的网关实现
type WebClient struct {
	api     *goslack.Client
	breaker *breaker.CircuitBreaker
	opts    Options
}

func NewWebClient(opts Options) *WebClient {
	if opts.ProfileConcurrency < 1 {
		opts.ProfileConcurrency = 1
	}
	if opts.HistoryMaxPages < 1 {
		opts.HistoryMaxPages = 20
	}

	var apiOpts []goslack.Option
	if opts.APIURL != "" {
		apiURL := opts.APIURL
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		apiOpts = append(apiOpts, goslack.OptionAPIURL(apiURL))
	}
	if opts.HTTPClient != nil {
		apiOpts = append(apiOpts, goslack.OptionHTTPClient(opts.HTTPClient))
	}

	cb := breaker.New("slack_api", 5, 30*time.Second)
	cb.OnOpen = func(name string) {
		metrics.RecordBreakerOpen(context.Background(), name)
	}

	return &WebClient{
		api:     goslack.New(opts.Token, apiOpts...),
		breaker: cb,
		opts:    opts,
	}
}

// call 统一处理熔断、指标与错误包装
func (c *WebClient) call(ctx context.Context, method string, op func() error) error {
	start := time.Now()
	err := c.breaker.Call(ctx, op)
	metrics.RecordGatewayCall(ctx, method, err, time.Since(start).Seconds())
	if err != nil {
		logger.Logger.Warn("Slack API call failed",
			zap.String("method", method),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", errors.GatewayUnavailable, method, err)
	}
	return nil
}

func (c *WebClient) ListChannels(ctx context.Context) ([]model.Channel, error) {
	var (
		channels []model.Channel
		cursor   string
	)
	for {
		var (
			page []goslack.Channel
			next string
		)
		err := c.call(ctx, "conversations.list", func() error {
			var err error
			page, next, err = c.api.GetConversationsContext(ctx, &goslack.GetConversationsParameters{
				Cursor:          cursor,
				ExcludeArchived: true,
				Limit:           channelPageSize,
				Types:           []string{"public_channel", "private_channel"},
			})
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, ch := range page {
			channels = append(channels, model.Channel{ID: ch.ID, Name: ch.Name})
		}
		if next == "" {
			return channels, nil
		}
		cursor = next
	}
}

func (c *WebClient) FindChannel(ctx context.Context, name string) (model.Channel, error) {
	name = strings.TrimPrefix(name, "#")
	channels, err := c.ListChannels(ctx)
	if err != nil {
		return model.Channel{}, err
	}
	for _, ch := range channels {
		if ch.Name == name {
			return ch, nil
		}
	}
	return model.Channel{}, fmt.Errorf("%w: #%s", errors.ChannelNotFound, name)
}

func (c *WebClient) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	var (
		members []string
		cursor  string
	)
	for {
		var (
			page []string
			next string
		)
		err := c.call(ctx, "conversations.members", func() error {
			var err error
			page, next, err = c.api.GetUsersInConversationContext(ctx, &goslack.GetUsersInConversationParameters{
				ChannelID: channelID,
				Cursor:    cursor,
				Limit:     memberPageSize,
			})
			return err
		})
		if err != nil {
			return nil, err
		}

		members = append(members, page...)
		if next == "" {
			return members, nil
		}
		cursor = next
	}
}

func (c *WebClient) GetUserProfile(ctx context.Context, userID string) (model.Member, error) {
	var user *goslack.User
	err := c.call(ctx, "users.info", func() error {
		var err error
		user, err = c.api.GetUserInfoContext(ctx, userID)
		return err
	})
	if err != nil {
		return model.Member{}, err
	}
	return memberFromUser(user), nil
}

// memberFromUser 显示名优先取 real_name，其次 display_name，最后用户名
func memberFromUser(u *goslack.User) model.Member {
	name := u.RealName
	if name == "" {
		name = u.Profile.DisplayName
	}
	if name == "" {
		name = u.Name
	}
	return model.Member{ID: u.ID, DisplayName: name, IsBot: u.IsBot || u.ID == "USLACKBOT"}
}

func (c *WebClient) ResolveMany(ctx context.Context, userIDs []string) ([]model.Member, error) {
	return ResolveMany(ctx, userIDs, c.opts.ProfileConcurrency, c.GetUserProfile)
}

// ResolveMany 以有限并发调用 lookup，失败的 ID 记录日志后跳过
func ResolveMany(ctx context.Context, userIDs []string, concurrency int, lookup func(context.Context, string) (model.Member, error)) ([]model.Member, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	resolved := make([]*model.Member, len(userIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, id := range userIDs {
		g.Go(func() error {
			member, err := lookup(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Logger.Warn("Failed to resolve member profile",
					zap.String("user_id", id),
					zap.Error(err),
				)
				return nil
			}
			resolved[i] = &member
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	members := make([]model.Member, 0, len(userIDs))
	for _, m := range resolved {
		if m != nil {
			members = append(members, *m)
		}
	}
	return members, nil
}

func (c *WebClient) FetchHistory(ctx context.Context, channelID string, oldest time.Time) ([]model.RawMessage, error) {
	params := &goslack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Limit:     historyPageSize,
	}
	if !oldest.IsZero() {
		params.Oldest = strconv.FormatInt(oldest.Unix(), 10)
	}

	var messages []model.RawMessage
	for page := 0; page < c.opts.HistoryMaxPages; page++ {
		var resp *goslack.GetConversationHistoryResponse
		err := c.call(ctx, "conversations.history", func() error {
			var err error
			resp, err = c.api.GetConversationHistoryContext(ctx, params)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, m := range resp.Messages {
			if _, skip := ignoredSubtypes[m.SubType]; skip {
				continue
			}
			messages = append(messages, model.RawMessage{
				AuthorID:  m.User,
				Text:      m.Text,
				PostedAt:  parseTimestamp(m.Timestamp),
				Timestamp: m.Timestamp,
			})
		}

		if !resp.HasMore || resp.ResponseMetaData.NextCursor == "" {
			return messages, nil
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}

	logger.Logger.Warn("History truncated at page limit",
		zap.String("channel", channelID),
		zap.Int("max_pages", c.opts.HistoryMaxPages),
		zap.Int("messages", len(messages)),
	)
	return messages, nil
}

// parseTimestamp Slack ts 形如 "1704700800.000200"，取整数秒
func parseTimestamp(ts string) int64 {
	sec, _, _ := strings.Cut(ts, ".")
	v, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (c *WebClient) PostMessage(ctx context.Context, channelID string, msg model.FormattedMessage) error {
	return c.call(ctx, "chat.postMessage", func() error {
		_, _, err := c.api.PostMessageContext(ctx, channelID,
			goslack.MsgOptionText(msg.Title, false),
			goslack.MsgOptionBlocks(ToBlocks(msg)...),
		)
		return err
	})
}
