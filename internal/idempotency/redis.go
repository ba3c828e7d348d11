// Package idempotency 基于 Redis 的幂等性检查
// 防止 NSQ 重投时同一条通知被重复推送
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	keySeparator          = ":"
	idempotencyPrefix     = "idemp"
	redisPlaceholderValue = "1"
)

var (
	// ErrRedisSetFailed Redis 设置失败错误
	ErrRedisSetFailed = errors.New("failed to set idempotency key in redis")

	// ErrEmptyKey 幂等键为空
	ErrEmptyKey = errors.New("idempotency key is empty")
)

// RedisChecker 基于 Redis 的幂等性检查器
// 利用 SETNX 实现原子性的检查和设置
type RedisChecker struct {
	client    redis.UniversalClient
	namespace string
	kind      string
}

// NewRedisChecker 创建幂等性检查器, kind 区分不同业务的键空间
func NewRedisChecker(client redis.UniversalClient, namespace, kind string) *RedisChecker {
	return &RedisChecker{
		client:    client,
		namespace: namespace,
		kind:      kind,
	}
}

// CheckAndSet 首次出现返回 true, 重复出现返回 false
func (checker *RedisChecker) CheckAndSet(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return false, ErrEmptyKey
	}

	isNew, err := checker.client.SetNX(ctx, checker.key(id), redisPlaceholderValue, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisSetFailed, err)
	}

	return isNew, nil
}

// Release 删除幂等标记, 处理失败需要重试时调用
func (checker *RedisChecker) Release(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyKey
	}
	return checker.client.Del(ctx, checker.key(id)).Err()
}

// key 格式: {namespace}:idemp:{kind}:{id}
func (checker *RedisChecker) key(id string) string {
	return strings.Join([]string{checker.namespace, idempotencyPrefix, checker.kind, id}, keySeparator)
}
