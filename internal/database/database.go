// Package database 负责打开和初始化内嵌的 SQLite 指标库。
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dushixiang/opsdeck/internal/models"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaVersion 当前数据库结构版本
const SchemaVersion = 1

// DefaultPath 返回默认数据库路径 ~/.opsdeck/metrics.db
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "metrics.db"
	}
	return filepath.Join(home, ".opsdeck", "metrics.db")
}

// Open 打开数据库并初始化表结构。
// 使用 WAL 模式，保证后台写入事务期间渲染侧仍可并发读取。
func Open(log *zap.Logger, path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("创建数据库目录失败: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if err := db.AutoMigrate(
		&models.SchemaVersion{},
		&models.ServerMetric{},
		&models.AgentMetric{},
		&models.CronMetric{},
		&models.SecurityMetric{},
		&models.PortScan{},
		&models.NetworkMetric{},
		&models.DNSCacheEntry{},
		&models.GeoCacheEntry{},
		&models.AttackerScan{},
	); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}

	if err := seedSchemaVersion(log, db); err != nil {
		return nil, err
	}

	return db, nil
}

// seedSchemaVersion 首次运行写入版本号；版本不一致时仅告警，不做迁移。
func seedSchemaVersion(log *zap.Logger, db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.SchemaVersion{}).Count(&count).Error; err != nil {
		return fmt.Errorf("读取 schema_version 失败: %w", err)
	}
	if count == 0 {
		if err := db.Create(&models.SchemaVersion{Version: SchemaVersion}).Error; err != nil {
			return fmt.Errorf("写入 schema_version 失败: %w", err)
		}
		return nil
	}

	var row models.SchemaVersion
	if err := db.Take(&row).Error; err == nil && row.Version != SchemaVersion {
		log.Warn("数据库版本与程序不一致，继续以兼容模式运行",
			zap.Int("dbVersion", row.Version),
			zap.Int("expected", SchemaVersion))
	}
	return nil
}
