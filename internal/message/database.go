package message

import (
	"context"
	"sync"
)

// Database 只负责记录的存储与读取
// 记录只追加, 读取按插入顺序返回
type Database interface {
	Store(ctx context.Context, item string) error
	GetAll(ctx context.Context) ([]string, error)
}

// MemoryDatabase 进程内存储, 进程退出即丢失
type MemoryDatabase struct {
	mu   sync.RWMutex
	data []string
}

// NewMemoryDatabase 创建空的内存存储
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{}
}

// Store 追加一条记录
func (database *MemoryDatabase) Store(_ context.Context, item string) error {
	database.mu.Lock()
	defer database.mu.Unlock()

	database.data = append(database.data, item)
	return nil
}

// GetAll 返回全部记录的副本
func (database *MemoryDatabase) GetAll(_ context.Context) ([]string, error) {
	database.mu.RLock()
	defer database.mu.RUnlock()

	items := make([]string, len(database.data))
	copy(items, database.data)
	return items, nil
}
