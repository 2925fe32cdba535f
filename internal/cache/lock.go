package cache

import (
	"context"
	"time"

	"AttendanceBot/storage/redis"
)

// 基于 SETNX 的分布式锁，防止多个调度副本重复发送同一份报表
const (
	lockPrefix = "lock"
)

// TryLock 获取锁。Redis 未启用时视为单实例部署，总是成功。
func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if !redis.Enabled() {
		return true, nil
	}

	fullkey := redis.Key(lockPrefix, key)
	return redis.Client().SetNX(ctx, fullkey, 1, ttl).Result()
}

func Unlock(ctx context.Context, key string) error {
	if !redis.Enabled() {
		return nil
	}

	fullkey := redis.Key(lockPrefix, key)
	return redis.Client().Del(ctx, fullkey).Err()
}
