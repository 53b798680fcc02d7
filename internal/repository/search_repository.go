// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"fmt"

	"pai-search-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SearchRepository 定义了 searches 表的操作接口。表只追加，不修改、不删除。
type SearchRepository interface {
	Create(ctx context.Context, record *model.SearchRecord) error
	ListRecent(ctx context.Context, limit int) ([]model.SearchRecord, error)
}

type searchRepository struct {
	db *gorm.DB
}

// NewSearchRepository 创建一个新的 SearchRepository 实例。
func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

// Create 插入一条搜索记录。ID 冲突时忽略，Kafka 重复投递同一任务不会产生重复行。
func (r *searchRepository) Create(ctx context.Context, record *model.SearchRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}
	return nil
}

// ListRecent 按创建时间倒序返回最近的搜索，只查询 id、query、created_at。
func (r *searchRepository) ListRecent(ctx context.Context, limit int) ([]model.SearchRecord, error) {
	var records []model.SearchRecord
	err := r.db.WithContext(ctx).
		Select("id", "query", "created_at").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent searches: %w", err)
	}
	return records, nil
}
