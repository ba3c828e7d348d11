package recorder

import (
	"context"
	"fmt"
	"time"

	"solid-gateway/internal/database"
)

const (
	sqlInsertRecord = "INSERT INTO message_records (item, created_at) VALUES (?, ?)"
	sqlQueryRecords = "SELECT item FROM message_records ORDER BY id ASC"
	sqlCountRecords = "SELECT COUNT(*) FROM message_records"
)

// MySQLStore 基于 message_records 表的消息记录存储
type MySQLStore struct {
	db  *database.MySQLDB
	now func() time.Time
}

// NewMySQLStore 创建 MySQL 存储实例
func NewMySQLStore(db *database.MySQLDB) *MySQLStore {
	return &MySQLStore{db: db, now: time.Now}
}

// Store 插入一条记录
func (store *MySQLStore) Store(ctx context.Context, item string) error {
	if _, err := store.db.ExecContext(ctx, sqlInsertRecord, item, store.now().Unix()); err != nil {
		return fmt.Errorf("mysql insert failed: %w", err)
	}
	return nil
}

// GetAll 按自增 id 顺序返回全部记录
func (store *MySQLStore) GetAll(ctx context.Context) ([]string, error) {
	items := []string{}
	if err := store.db.SelectContext(ctx, &items, sqlQueryRecords); err != nil {
		return nil, fmt.Errorf("mysql query failed: %w", err)
	}
	return items, nil
}

// Count 返回记录总数
func (store *MySQLStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := store.db.GetContext(ctx, &count, sqlCountRecords); err != nil {
		return 0, fmt.Errorf("mysql count failed: %w", err)
	}
	return count, nil
}
