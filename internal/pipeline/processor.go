// Package pipeline 定义了搜索结果持久化的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pai-search-go/internal/model"
	"pai-search-go/internal/repository"
	"pai-search-go/pkg/log"
	"pai-search-go/pkg/storage"
	"pai-search-go/pkg/tasks"
)

// HistoryIndexer 把搜索记录写入全文索引。
type HistoryIndexer interface {
	IndexSearch(ctx context.Context, doc model.SearchDocument) error
}

// SnapshotArchiver 把搜索快照写入对象存储。
type SnapshotArchiver interface {
	PutSnapshot(ctx context.Context, snap storage.Snapshot) error
}

// ErrNoSearchStore 表示启动时 MySQL 不可用，搜索记录无法写入。
var ErrNoSearchStore = errors.New("search repository not configured")

// Processor 封装了搜索持久化的所有依赖和逻辑。
// 只有 MySQL 写入失败会返回错误，其余步骤尽力而为。
type Processor struct {
	searchRepo repository.SearchRepository
	cache      repository.RecentSearchCache
	indexer    HistoryIndexer
	archiver   SnapshotArchiver
}

// NewProcessor 创建一个新的 Processor 实例。各依赖都可以为 nil，searchRepo 为 nil 时 Process 返回 ErrNoSearchStore。
func NewProcessor(
	searchRepo repository.SearchRepository,
	cache repository.RecentSearchCache,
	indexer HistoryIndexer,
	archiver SnapshotArchiver,
) *Processor {
	return &Processor{
		searchRepo: searchRepo,
		cache:      cache,
		indexer:    indexer,
		archiver:   archiver,
	}
}

// Process 持久化一次完成的搜索。
func (p *Processor) Process(ctx context.Context, task tasks.SearchPersistTask) error {
	log.Infof("[Processor] 开始持久化搜索, ID: %s", task.ID)
	if p.searchRepo == nil {
		return fmt.Errorf("写入搜索记录失败, ID: %s: %w", task.ID, ErrNoSearchStore)
	}

	// 1. 写入 searches 表
	createdAt := task.RequestedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	record := &model.SearchRecord{
		ID:        task.ID,
		Query:     task.Query,
		Answer:    task.Answer,
		CreatedAt: createdAt,
	}
	if err := p.searchRepo.Create(ctx, record); err != nil {
		log.Errorf("[Processor] 写入搜索记录失败, ID: %s, Error: %v", task.ID, err)
		return fmt.Errorf("写入搜索记录失败: %w", err)
	}

	// 2. 让最近搜索缓存失效
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			log.Warnf("[Processor] 最近搜索缓存失效失败, ID: %s, Error: %v", task.ID, err)
		}
	}

	// 3. 写入历史索引
	if p.indexer != nil {
		doc := model.SearchDocument{ID: record.ID, Query: record.Query, Answer: record.Answer, CreatedAt: record.CreatedAt}
		if err := p.indexer.IndexSearch(ctx, doc); err != nil {
			log.Warnf("[Processor] 写入历史索引失败, ID: %s, Error: %v", task.ID, err)
		}
	}

	// 4. 归档快照
	if p.archiver != nil {
		sources := task.Sources
		if sources == nil {
			sources = []model.SearchResult{}
		}
		snap := storage.Snapshot{ID: record.ID, Query: record.Query, Answer: record.Answer, Sources: sources, CreatedAt: record.CreatedAt}
		if err := p.archiver.PutSnapshot(ctx, snap); err != nil {
			log.Warnf("[Processor] 归档快照失败, ID: %s, Error: %v", task.ID, err)
		}
	}

	log.Infof("[Processor] 搜索持久化完成, ID: %s", task.ID)
	return nil
}
