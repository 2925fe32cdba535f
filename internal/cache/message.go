package cache

import (
	"context"
	"fmt"
	"time"

	"AttendanceBot/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"
	processedTTL           = 48 * time.Hour
)

// TryMarkMessageProcessing 标记消息为处理中，已存在返回 false（重复投递）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	if !redis.Enabled() {
		return true, nil
	}

	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 处理失败时清除标记，允许重新投递后再次处理
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	if !redis.Enabled() {
		return nil
	}
	return redis.Client().Del(ctx, redis.Key(messageProcessedPrefix, messageID)).Err()
}

func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	if !redis.Enabled() {
		return nil
	}

	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}
