package recorder

import (
	"context"
	"fmt"
	"log"
)

const logTagHybridRecorder = "[HYBRID_RECORDER]"

// HybridStore Redis + MySQL 混合存储
// 写入: MySQL 为准, 成功后再写 Redis 缓存, Redis 失败只记录日志
// 读取: 优先 Redis, Redis 不可用或条数与 MySQL 不一致时回落 MySQL
type HybridStore struct {
	redisStore *RedisStore
	mysqlStore *MySQLStore
}

// NewHybridStore 创建混合存储
func NewHybridStore(redisStore *RedisStore, mysqlStore *MySQLStore) *HybridStore {
	return &HybridStore{
		redisStore: redisStore,
		mysqlStore: mysqlStore,
	}
}

// Store 写入 MySQL 后追加到 Redis
// MySQL 失败时不触碰 Redis, 失败的调用不会留下记录
func (store *HybridStore) Store(ctx context.Context, item string) error {
	if err := store.mysqlStore.Store(ctx, item); err != nil {
		return fmt.Errorf("hybrid store mysql write failed: %w", err)
	}

	if err := store.redisStore.Store(ctx, item); err != nil {
		log.Printf("%s Redis 写入失败, 读取将回落 MySQL: %v", logTagHybridRecorder, err)
	}
	return nil
}

// GetAll 返回全部记录
// Redis 与 MySQL 条数不一致(裁剪或缓存写入失败)时以 MySQL 为准
func (store *HybridStore) GetAll(ctx context.Context) ([]string, error) {
	items, err := store.redisStore.GetAll(ctx)
	if err != nil {
		log.Printf("%s Redis 查询失败, 回落 MySQL: %v", logTagHybridRecorder, err)
		return store.mysqlStore.GetAll(ctx)
	}

	total, err := store.mysqlStore.Count(ctx)
	if err != nil {
		log.Printf("%s MySQL 计数失败, 使用 Redis 结果: %v", logTagHybridRecorder, err)
		return items, nil
	}

	if int64(len(items)) != total {
		return store.mysqlStore.GetAll(ctx)
	}
	return items, nil
}
