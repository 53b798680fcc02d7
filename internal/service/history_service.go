package service

import (
	"context"
	"errors"

	"pai-search-go/internal/model"
	"pai-search-go/internal/repository"
	"pai-search-go/pkg/log"
)

const (
	// RecentSearchLimit 是最近搜索列表的最大条数。
	RecentSearchLimit  = 5
	defaultHistorySize = 10
	maxHistorySize     = 50
)

// ErrHistoryDisabled 表示未配置搜索历史索引。
var ErrHistoryDisabled = errors.New("search history is not configured")

// HistorySearcher 在搜索历史索引中检索。
type HistorySearcher interface {
	SearchHistory(ctx context.Context, text string, size int) ([]model.SearchDocument, error)
}

// HistoryService 接口定义了最近搜索与历史检索操作。
type HistoryService interface {
	// RecentSearches 返回最多 5 条最近搜索，失败时返回空列表，从不返回错误。
	RecentSearches(ctx context.Context) []model.SearchRecord
	SearchHistory(ctx context.Context, text string, size int) ([]model.SearchDocument, error)
}

type historyService struct {
	searchRepo repository.SearchRepository
	cache      repository.RecentSearchCache
	searcher   HistorySearcher
}

// NewHistoryService 创建一个新的 HistoryService 实例。cache 与 searcher 可以为 nil。
func NewHistoryService(searchRepo repository.SearchRepository, cache repository.RecentSearchCache, searcher HistorySearcher) HistoryService {
	return &historyService{searchRepo: searchRepo, cache: cache, searcher: searcher}
}

func (s *historyService) RecentSearches(ctx context.Context) []model.SearchRecord {
	var version int64
	canFill := false
	if s.cache != nil {
		records, ok, err := s.cache.Get(ctx)
		if err != nil {
			log.Warnf("[HistoryService] 读取最近搜索缓存失败: %v", err)
		} else if ok {
			return capRecent(records)
		}
		// 查库前记下版本号，查库期间如有新记录写入则放弃回填
		if version, err = s.cache.Version(ctx); err != nil {
			log.Warnf("[HistoryService] 读取最近搜索缓存版本失败: %v", err)
		} else {
			canFill = true
		}
	}

	if s.searchRepo == nil {
		return []model.SearchRecord{}
	}
	records, err := s.searchRepo.ListRecent(ctx, RecentSearchLimit)
	if err != nil {
		log.Errorf("[HistoryService] 查询最近搜索失败: %v", err)
		return []model.SearchRecord{}
	}
	records = capRecent(records)

	if canFill {
		stored, err := s.cache.SetIfVersion(ctx, version, records)
		if err != nil {
			log.Warnf("[HistoryService] 写入最近搜索缓存失败: %v", err)
		} else if !stored {
			log.Debugf("[HistoryService] 最近搜索在查询期间已更新，跳过缓存回填")
		}
	}
	return records
}

func (s *historyService) SearchHistory(ctx context.Context, text string, size int) ([]model.SearchDocument, error) {
	if text == "" {
		return nil, ErrEmptyQuery
	}
	if s.searcher == nil {
		return nil, ErrHistoryDisabled
	}
	if size <= 0 {
		size = defaultHistorySize
	}
	if size > maxHistorySize {
		size = maxHistorySize
	}
	docs, err := s.searcher.SearchHistory(ctx, text, size)
	if err != nil {
		log.Errorf("[HistoryService] 检索搜索历史失败, q: '%s', error: %v", text, err)
		return nil, err
	}
	return docs, nil
}

func capRecent(records []model.SearchRecord) []model.SearchRecord {
	if records == nil {
		return []model.SearchRecord{}
	}
	if len(records) > RecentSearchLimit {
		records = records[:RecentSearchLimit]
	}
	// 列表只暴露 id、query、created_at
	out := make([]model.SearchRecord, len(records))
	for i, r := range records {
		out[i] = model.SearchRecord{ID: r.ID, Query: r.Query, CreatedAt: r.CreatedAt}
	}
	return out
}
