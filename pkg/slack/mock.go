package slack

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"AttendanceBot/internal/model"
	"AttendanceBot/pkg/errors"
)

// PostedMessage MockClient 记录的一次发送
type PostedMessage struct {
	ChannelID string
	Message   model.FormattedMessage
}

// MockClient 内存中的 Slack 网关，实现 Client 接口
type MockClient struct {
	mu sync.Mutex

	Channels []model.Channel
	Members  map[string][]string           // channelID -> userIDs
	Profiles map[string]model.Member       // userID -> profile
	History  map[string][]model.RawMessage // channelID -> messages

	// 设置后对应调用返回该错误（已包装为 GatewayUnavailable）
	ListErr    error
	MembersErr error
	HistoryErr error
	PostErr    error

	Posts         []PostedMessage
	HistoryOldest time.Time
	ProfileCalls  int
}

func NewMockClient() *MockClient {
	return &MockClient{
		Members:  make(map[string][]string),
		Profiles: make(map[string]model.Member),
		History:  make(map[string][]model.RawMessage),
	}
}

func gatewayErr(method string, err error) error {
	return fmt.Errorf("%w: %s: %v", errors.GatewayUnavailable, method, err)
}

func (m *MockClient) ListChannels(ctx context.Context) ([]model.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, gatewayErr("conversations.list", m.ListErr)
	}
	return append([]model.Channel(nil), m.Channels...), nil
}

func (m *MockClient) FindChannel(ctx context.Context, name string) (model.Channel, error) {
	name = strings.TrimPrefix(name, "#")
	channels, err := m.ListChannels(ctx)
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

func (m *MockClient) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MembersErr != nil {
		return nil, gatewayErr("conversations.members", m.MembersErr)
	}
	return append([]string(nil), m.Members[channelID]...), nil
}

func (m *MockClient) GetUserProfile(ctx context.Context, userID string) (model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ProfileCalls++
	p, ok := m.Profiles[userID]
	if !ok {
		return model.Member{}, gatewayErr("users.info", fmt.Errorf("user_not_found"))
	}
	return p, nil
}

func (m *MockClient) ResolveMany(ctx context.Context, userIDs []string) ([]model.Member, error) {
	return ResolveMany(ctx, userIDs, 1, m.GetUserProfile)
}

func (m *MockClient) FetchHistory(ctx context.Context, channelID string, oldest time.Time) ([]model.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HistoryOldest = oldest
	if m.HistoryErr != nil {
		return nil, gatewayErr("conversations.history", m.HistoryErr)
	}

	var messages []model.RawMessage
	for _, msg := range m.History[channelID] {
		if oldest.IsZero() || msg.PostedAt >= oldest.Unix() {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

func (m *MockClient) PostMessage(ctx context.Context, channelID string, msg model.FormattedMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PostErr != nil {
		return gatewayErr("chat.postMessage", m.PostErr)
	}
	m.Posts = append(m.Posts, PostedMessage{ChannelID: channelID, Message: msg})
	return nil
}

// Posted 返回已发送消息的副本
func (m *MockClient) Posted() []PostedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PostedMessage(nil), m.Posts...)
}
