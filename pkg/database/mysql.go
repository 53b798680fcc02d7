package database

import (
	"context"
	"fmt"
	"time"

	"pai-search-go/internal/model"
	"pai-search-go/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitMySQL 初始化 MySQL 数据库连接，autoMigrate 为 true 时同步 searches 表结构。
// 只有 DSN 无法解析时返回错误；数据库暂时不可达时保留连接池并记录日志，
// database/sql 会在后续请求时重新建立连接。
func InitMySQL(dsn string, autoMigrate bool) error {
	if dsn == "" {
		return fmt.Errorf("mysql dsn is empty")
	}
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN: dsn,
		// 启动时不查询服务端版本，数据库未就绪也能完成初始化
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		// 搜索记录只做单行插入，不需要默认事务
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	DB = db

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Errorf("MySQL 暂不可达，搜索记录写入会失败直到数据库恢复: %v", err)
		return nil
	}

	if autoMigrate {
		if err := db.AutoMigrate(&model.SearchRecord{}); err != nil {
			log.Errorf("同步 searches 表结构失败: %v", err)
			return nil
		}
	}
	log.Info("MySQL database connected successfully")
	return nil
}

// CloseMySQL 关闭连接池。
func CloseMySQL() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
