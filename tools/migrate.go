package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"solid-gateway/internal/config"
	"solid-gateway/internal/database"
	"solid-gateway/internal/recorder"
)

const migrateTimeout = 5 * time.Minute

var (
	configFile = flag.String("config", "etc/app.yaml", "配置文件路径")
	mode       = flag.String("mode", "migrate", "操作模式: migrate|verify|cleanup")
	dryRun     = flag.Bool("dry-run", false, "仅预览，不执行实际操作")
)

func main() {
	flag.Parse()

	config.LoadEnv(".env")
	cfg := config.MustLoad(config.ResolvePath(*configFile))

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	// 连接 Redis
	rc := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
	defer rc.Close()

	// 连接 MySQL
	mysqlDB, err := database.NewMySQLDB(ctx, cfg.Storage.MySQL)
	if err != nil {
		log.Fatalf("MySQL连接失败: %v", err)
	}
	defer mysqlDB.Close()

	if err := mysqlDB.InitTables(ctx); err != nil {
		log.Fatalf("表初始化失败: %v", err)
	}

	migrator := &DataMigrator{
		redis:  recorder.NewRedisStore(rc, cfg.Storage.Namespace, cfg.Storage.MaxKeep, cfg.Storage.TTL),
		mysql:  recorder.NewMySQLStore(mysqlDB),
		dryRun: *dryRun,
	}

	if err := migrator.Run(ctx, *mode); err != nil {
		log.Fatalf("%s 失败: %v", *mode, err)
	}
}

type recordReader interface {
	GetAll(ctx context.Context) ([]string, error)
}

type recordWriter interface {
	recordReader
	Store(ctx context.Context, item string) error
}

type recordCleaner interface {
	recordReader
	Clear(ctx context.Context) error
}

// DataMigrator 在 Redis 与 MySQL 之间同步消息记录
type DataMigrator struct {
	redis  recordCleaner
	mysql  recordWriter
	dryRun bool
}

// Run 按模式执行
func (m *DataMigrator) Run(ctx context.Context, mode string) error {
	switch mode {
	case "migrate":
		_, err := m.MigrateRecords(ctx)
		return err
	case "verify":
		_, err := m.VerifyData(ctx)
		return err
	case "cleanup":
		_, err := m.CleanupRedisData(ctx)
		return err
	default:
		return fmt.Errorf("未知模式: %s", mode)
	}
}

// MigrateRecords 把 MySQL 中缺失的 Redis 记录按顺序补写到 MySQL
// 返回补写条数, dry-run 时只统计
func (m *DataMigrator) MigrateRecords(ctx context.Context) (int, error) {
	log.Printf("开始迁移消息记录...")

	missing, err := m.missingRecords(ctx)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, item := range missing {
		if !m.dryRun {
			if err := m.mysql.Store(ctx, item); err != nil {
				return migrated, fmt.Errorf("插入记录到MySQL失败: %w", err)
			}
		}

		migrated++
		if migrated%100 == 0 {
			log.Printf("已迁移 %d/%d 条记录", migrated, len(missing))
		}
	}

	log.Printf("迁移完成: 待迁移 %d, 迁移成功 %d (dry-run=%v)", len(missing), migrated, m.dryRun)
	return migrated, nil
}

// VerifyData 检查 Redis 中的记录是否都已落入 MySQL
func (m *DataMigrator) VerifyData(ctx context.Context) (bool, error) {
	log.Printf("开始验证数据一致性...")

	missing, err := m.missingRecords(ctx)
	if err != nil {
		return false, err
	}

	if len(missing) == 0 {
		log.Printf("数据一致性验证通过")
		return true, nil
	}

	log.Printf("数据不一致: MySQL 缺少 %d 条记录, 需要执行 migrate", len(missing))
	return false, nil
}

// CleanupRedisData 所有记录都已落入 MySQL 时清空 Redis 列表
// 返回是否执行了清理
func (m *DataMigrator) CleanupRedisData(ctx context.Context) (bool, error) {
	log.Printf("开始清理Redis冗余数据...")

	consistent, err := m.VerifyData(ctx)
	if err != nil {
		return false, err
	}
	if !consistent {
		log.Printf("存在未迁移记录, 跳过清理")
		return false, nil
	}

	if m.dryRun {
		log.Printf("dry-run: 跳过清理")
		return false, nil
	}

	if err := m.redis.Clear(ctx); err != nil {
		return false, err
	}

	log.Printf("清理完成")
	return true, nil
}

// missingRecords 按多重集合比较, 返回 MySQL 中缺失的 Redis 记录(保持 Redis 顺序)
func (m *DataMigrator) missingRecords(ctx context.Context) ([]string, error) {
	redisItems, err := m.redis.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取Redis记录失败: %w", err)
	}

	mysqlItems, err := m.mysql.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取MySQL记录失败: %w", err)
	}

	log.Printf("Redis记录数: %d", len(redisItems))
	log.Printf("MySQL记录数: %d", len(mysqlItems))

	persisted := make(map[string]int, len(mysqlItems))
	for _, item := range mysqlItems {
		persisted[item]++
	}

	var missing []string
	for _, item := range redisItems {
		if persisted[item] > 0 {
			persisted[item]--
			continue
		}
		missing = append(missing, item)
	}

	return missing, nil
}
