// Package testutil 提供测试用的内存数据库
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"valve-vault/backend/internal/model"
)

// Models 参与自动建表的全部模型
var Models = []interface{}{
	&model.Sequence{},
	&model.CodeRequest{},
	&model.CatalogItem{},
	&model.ItemAddress{},
	&model.InventoryCount{},
	&model.StockMovement{},
	&model.AuditRecord{},
}

// NewSQLiteDB 创建内存 SQLite 数据库并建表
// 连接数限制为 1：内存库每个连接是独立的数据库，同时也让并发事务串行执行
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("打开 SQLite 失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取底层连接失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models...); err != nil {
		t.Fatalf("AutoMigrate 失败: %v", err)
	}
	return db
}
