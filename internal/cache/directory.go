package cache

import (
	"context"
	"time"

	"AttendanceBot/internal/model"
)

// Slack 目录缓存：频道名 -> ID，成员 ID -> 资料。仅用于减少 API 调用，不是数据源。
var (
	ChannelCache = NewProtectedCache("slack:channel", time.Hour)
	ProfileCache = NewProtectedCache("slack:profile", 6*time.Hour)
)

// GetChannel 按名称读取频道缓存
func GetChannel(ctx context.Context, name string) (model.Channel, bool, error) {
	var ch model.Channel
	hit, empty, err := ChannelCache.Get(ctx, name, &ch)
	if err != nil || !hit || empty {
		return model.Channel{}, false, err
	}
	return ch, true, nil
}

func SetChannel(ctx context.Context, ch model.Channel) error {
	return ChannelCache.Set(ctx, ch.Name, ch)
}

// GetProfiles 批量读取成员资料，返回命中的资料和未命中的 ID（保持输入顺序）
func GetProfiles(ctx context.Context, userIDs []string) (map[string]model.Member, []string, error) {
	raw, err := ProfileCache.BatchGet(ctx, userIDs, func(string) interface{} {
		return &model.Member{}
	})
	if err != nil {
		return nil, userIDs, err
	}

	found := make(map[string]model.Member, len(raw))
	missing := make([]string, 0, len(userIDs)-len(raw))
	for _, id := range userIDs {
		v, ok := raw[id]
		if !ok || v == nil {
			missing = append(missing, id)
			continue
		}
		found[id] = *v.(*model.Member)
	}
	return found, missing, nil
}

func SetProfiles(ctx context.Context, members []model.Member) error {
	values := make(map[string]interface{}, len(members))
	for _, m := range members {
		values[m.ID] = m
	}
	return ProfileCache.BatchSet(ctx, values)
}

// Configure 应用配置中的 TTL
func Configure(channelTTL, profileTTL time.Duration) {
	ChannelCache.WithTTL(channelTTL)
	ProfileCache.WithTTL(profileTTL)
}
