package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	ri "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"AttendanceBot/pkg/breaker"
	"AttendanceBot/pkg/logger"
	"AttendanceBot/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	// 空值缓存TTL，较短时间避免长期占用
	emptyValueTTL = 5 * time.Minute
)

// RedisBreaker Redis 连续失败 5 次后熔断，30 秒后尝试恢复
var RedisBreaker = breaker.New("redis_cache", 5, 30*time.Second)

// ProtectedCache 带空值保护与熔断的缓存。Redis 未启用时所有读取都是未命中。
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
	emptyTTL  time.Duration
}

// NewProtectedCache 创建受保护的缓存实例
func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{
		keyPrefix: keyPrefix,
		ttl:       ttl,
		emptyTTL:  emptyValueTTL,
	}
}

// WithTTL 覆盖默认 TTL，ttl <= 0 时保持不变
func (pc *ProtectedCache) WithTTL(ttl time.Duration) *ProtectedCache {
	if ttl > 0 {
		pc.ttl = ttl
	}
	return pc
}

// Set 设置缓存，value 为 nil 时写入空值标识
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	if !redis.Enabled() {
		return nil
	}

	var data string
	ttl := pc.ttl
	if value == nil {
		data = emptyValueFlag
		ttl = pc.emptyTTL
	} else {
		dataBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal cache value: %w", err)
		}
		data = string(dataBytes)
	}

	cacheKey := redis.Key(pc.keyPrefix, key)
	return RedisBreaker.Call(ctx, func() error {
		return redis.Client().Set(ctx, cacheKey, data, ttl).Err()
	})
}

// Get 获取缓存。返回 hit=true 且 dest 未被填充表示命中空值。
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (hit bool, empty bool, err error) {
	if !redis.Enabled() {
		return false, false, nil
	}

	cacheKey := redis.Key(pc.keyPrefix, key)
	var data string
	err = RedisBreaker.Call(ctx, func() error {
		var getErr error
		data, getErr = redis.Client().Get(ctx, cacheKey).Result()
		if stderrors.Is(getErr, ri.Nil) {
			return nil
		}
		return getErr
	})
	if err != nil {
		return false, false, fmt.Errorf("failed to get cache: %w", err)
	}
	if data == "" {
		return false, false, nil
	}
	if data == emptyValueFlag {
		return true, true, nil
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, false, nil
}

// BatchGet 批量读取，destFunc 为每个 key 提供反序列化目标。未命中的 key 不出现在结果中。
func (pc *ProtectedCache) BatchGet(ctx context.Context, keys []string, destFunc func(string) interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	if len(keys) == 0 || !redis.Enabled() {
		return result, nil
	}

	cmds := make(map[string]*ri.StringCmd, len(keys))
	err := RedisBreaker.Call(ctx, func() error {
		pipe := redis.Client().Pipeline()
		for _, key := range keys {
			cmds[key] = pipe.Get(ctx, redis.Key(pc.keyPrefix, key))
		}
		_, execErr := pipe.Exec(ctx)
		if stderrors.Is(execErr, ri.Nil) {
			return nil
		}
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to batch get cache: %w", err)
	}

	for key, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			if !stderrors.Is(err, ri.Nil) {
				logger.Logger.Warn("Failed to get cache item in batch",
					zap.String("key", key),
					zap.Error(err),
				)
			}
			continue
		}

		if data == emptyValueFlag {
			result[key] = nil
			continue
		}

		dest := destFunc(key)
		if err := json.Unmarshal([]byte(data), dest); err != nil {
			logger.Logger.Warn("Failed to unmarshal cache item in batch",
				zap.String("key", key),
				zap.Error(err),
			)
			continue
		}
		result[key] = dest
	}

	return result, nil
}

// BatchSet 批量写入，使用 pipeline
func (pc *ProtectedCache) BatchSet(ctx context.Context, values map[string]interface{}) error {
	if len(values) == 0 || !redis.Enabled() {
		return nil
	}

	return RedisBreaker.Call(ctx, func() error {
		pipe := redis.Client().Pipeline()
		for key, value := range values {
			dataBytes, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to marshal cache value: %w", err)
			}
			pipe.Set(ctx, redis.Key(pc.keyPrefix, key), string(dataBytes), pc.ttl)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
}

// Delete 删除缓存
func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	if !redis.Enabled() {
		return nil
	}
	return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
}
