package database

import (
	"context"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"solid-gateway/internal/config"
)

// 表名常量
const (
	TableMessageRecords = "message_records"
)

// SQL 建表语句常量
// 使用 InnoDB 引擎支持事务, utf8mb4 支持完整 Unicode 字符集
const (
	// createMessageRecordsTableSQL 消息记录表
	// 自增主键即插入顺序, 读取时按 id 升序返回
	createMessageRecordsTableSQL = `
		CREATE TABLE IF NOT EXISTS message_records (
			id BIGINT AUTO_INCREMENT PRIMARY KEY COMMENT '自增ID',
			item TEXT NOT NULL COMMENT '消息记录',
			created_at BIGINT NOT NULL COMMENT '创建时间戳',
			INDEX idx_created_at (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
		COMMENT='消息记录表'
	`
)

// MySQLDB MySQL 数据库连接管理器
// 封装连接池和表初始化逻辑
type MySQLDB struct {
	*sqlx.DB
}

// NewMySQLDB 创建 MySQL 数据库连接
// 自动配置连接池参数并测试连接可用性
func NewMySQLDB(ctx context.Context, mysqlConfig config.MySQLConfig) (*MySQLDB, error) {
	database, err := sqlx.Open("mysql", mysqlConfig.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	configureConnectionPool(database, mysqlConfig)

	if err := database.PingContext(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("[MYSQL] 数据库连接成功")
	return &MySQLDB{DB: database}, nil
}

// Wrap 包装已有连接(测试或外部连接池)
func Wrap(database *sqlx.DB) *MySQLDB {
	return &MySQLDB{DB: database}
}

// configureConnectionPool 配置数据库连接池参数
func configureConnectionPool(database *sqlx.DB, mysqlConfig config.MySQLConfig) {
	database.SetMaxOpenConns(mysqlConfig.MaxOpenConns)
	database.SetMaxIdleConns(mysqlConfig.MaxIdleConns)
	database.SetConnMaxLifetime(mysqlConfig.ConnMaxLifetime)
}

// InitTables 初始化数据库表结构
// 幂等操作, 多次执行不会产生副作用
func (database *MySQLDB) InitTables(ctx context.Context) error {
	tables := []tableDefinition{
		{name: TableMessageRecords, sql: createMessageRecordsTableSQL},
	}

	for _, table := range tables {
		if err := database.createTable(ctx, table); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	log.Printf("[MYSQL] 数据库表初始化完成")
	return nil
}

// tableDefinition 表定义结构
type tableDefinition struct {
	name string
	sql  string
}

// createTable 创建单个数据表
func (database *MySQLDB) createTable(ctx context.Context, table tableDefinition) error {
	if _, err := database.ExecContext(ctx, table.sql); err != nil {
		log.Printf("[MYSQL] 创建表 %s 失败: %v", table.name, err)
		return fmt.Errorf("failed to create table %s: %w", table.name, err)
	}
	return nil
}

// Close 关闭数据库连接
func (database *MySQLDB) Close() error {
	if err := database.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
