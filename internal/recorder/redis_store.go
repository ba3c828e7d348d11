package recorder

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisRecordsKey = "%s:records"

// appendRecordScript 追加记录, 超出上限时从头部裁剪, 并刷新过期时间
// 三步在同一脚本内执行, 并发写入不会出现短暂超限
var appendRecordScript = redis.NewScript(`
local listKey = KEYS[1]
local maxKeepCount = tonumber(ARGV[2])
local ttlMillis = tonumber(ARGV[3])

local length = redis.call("RPUSH", listKey, ARGV[1])
if maxKeepCount > 0 and length > maxKeepCount then
  redis.call("LTRIM", listKey, -maxKeepCount, -1)
end
if ttlMillis > 0 then
  redis.call("PEXPIRE", listKey, ttlMillis)
end
return length
`)

// RedisStore 基于 Redis 列表的消息记录存储
// 列表按插入顺序保存, maxKeep > 0 时只保留最新的 maxKeep 条
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	maxKeep   int64
	ttl       time.Duration
}

// NewRedisStore 创建 Redis 存储实例
func NewRedisStore(client redis.UniversalClient, namespace string, maxKeep int64, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
		maxKeep:   maxKeep,
		ttl:       ttl,
	}
}

// Store 追加一条记录
func (store *RedisStore) Store(ctx context.Context, item string) error {
	err := appendRecordScript.Run(
		ctx,
		store.client,
		[]string{store.recordsKey()},
		item,
		store.maxKeep,
		store.ttl.Milliseconds(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis store failed: %w", err)
	}
	return nil
}

// GetAll 按插入顺序返回全部记录
func (store *RedisStore) GetAll(ctx context.Context) ([]string, error) {
	items, err := store.client.LRange(ctx, store.recordsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis query failed: %w", err)
	}
	return items, nil
}

// Count 返回当前记录数
func (store *RedisStore) Count(ctx context.Context) (int64, error) {
	count, err := store.client.LLen(ctx, store.recordsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("redis count failed: %w", err)
	}
	return count, nil
}

// Clear 删除全部记录
func (store *RedisStore) Clear(ctx context.Context) error {
	if err := store.client.Del(ctx, store.recordsKey()).Err(); err != nil {
		return fmt.Errorf("redis clear failed: %w", err)
	}
	return nil
}

// Ping 检查 Redis 连接
func (store *RedisStore) Ping(ctx context.Context) error {
	return store.client.Ping(ctx).Err()
}

func (store *RedisStore) recordsKey() string {
	return fmt.Sprintf(redisRecordsKey, store.namespace)
}
