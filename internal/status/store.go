// Package status 记录异步通知的投递状态
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"solid-gateway/internal/notify"
)

// 投递状态
const (
	StateQueued    = "queued"
	StateDelivered = "delivered"
	StatePartial   = "partial"
	StateFailed    = "failed"
)

const (
	defaultTTL           = 24 * time.Hour
	redisKeyStatusFormat = "%s:notify_status:%s"
)

var (
	// ErrNotFound 状态不存在或已过期
	ErrNotFound = errors.New("delivery status not found")

	// ErrEmptyID 信封 ID 为空
	ErrEmptyID = errors.New("envelope id is required")
)

// DeliveryStatus 一条异步通知的投递状态
type DeliveryStatus struct {
	ID        string          `json:"id"`
	Message   string          `json:"message,omitempty"`
	State     string          `json:"state"`
	Attempts  uint16          `json:"attempts"`
	Results   []notify.Result `json:"results,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt int64           `json:"created_at"`
	UpdatedAt int64           `json:"updated_at"`
}

// Store 状态存储接口
type Store interface {
	Save(ctx context.Context, status *DeliveryStatus) error
	Get(ctx context.Context, id string) (*DeliveryStatus, error)
}

//
// Redis 实现
//

// RedisStore 以 JSON 字符串保存状态, 带过期时间
type RedisStore struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
}

// NewRedisStore 创建 Redis 状态存储, ttl 为 0 时使用默认值
func NewRedisStore(client redis.UniversalClient, namespace string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &RedisStore{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
	}
}

// Save 覆盖写入状态
func (store *RedisStore) Save(ctx context.Context, status *DeliveryStatus) error {
	if status.ID == "" {
		return ErrEmptyID
	}

	statusJSON, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := store.client.Set(ctx, store.key(status.ID), statusJSON, store.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save status to redis: %w", err)
	}

	return nil
}

// Get 读取状态, 不存在时返回 ErrNotFound
func (store *RedisStore) Get(ctx context.Context, id string) (*DeliveryStatus, error) {
	data, err := store.client.Get(ctx, store.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}

	var status DeliveryStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

func (store *RedisStore) key(id string) string {
	return fmt.Sprintf(redisKeyStatusFormat, store.namespace, id)
}

//
// 内存实现
//

// MemoryStore 进程内状态存储, 未配置 Redis 时使用
// 仅当 API 与消费者在同一进程时可查询到投递结果
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]DeliveryStatus
}

// NewMemoryStore 创建内存状态存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{statuses: make(map[string]DeliveryStatus)}
}

// Save 覆盖写入状态
func (store *MemoryStore) Save(_ context.Context, status *DeliveryStatus) error {
	if status.ID == "" {
		return ErrEmptyID
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	store.statuses[status.ID] = *status
	return nil
}

// Get 读取状态, 不存在时返回 ErrNotFound
func (store *MemoryStore) Get(_ context.Context, id string) (*DeliveryStatus, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	status, ok := store.statuses[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &status, nil
}
