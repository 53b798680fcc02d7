package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pai-search-go/internal/model"

	"github.com/go-redis/redis/v8"
)

const (
	recentSearchesKey = "searches:recent"
	// 每次失效递增，回填前后版本不一致说明期间有新记录写入
	recentVersionKey = "searches:recent:version"
)

// setIfVersionScript 只在版本号未变化时写入列表，版本键不存在视为 0。
var setIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RecentSearchCache 缓存最近搜索列表。Get 未命中时返回 (nil, false, nil)。
// 回填流程：先取 Version，再查库，最后用 SetIfVersion 写回；
// 其间发生过 Invalidate 时写回被放弃，避免旧列表覆盖新数据。
type RecentSearchCache interface {
	Get(ctx context.Context) ([]model.SearchRecord, bool, error)
	Version(ctx context.Context) (int64, error)
	SetIfVersion(ctx context.Context, version int64, records []model.SearchRecord) (bool, error)
	Invalidate(ctx context.Context) error
}

type redisRecentSearchCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

// NewRecentSearchCache 创建一个基于 Redis 的最近搜索缓存。
func NewRecentSearchCache(redisClient *redis.Client, ttl time.Duration) RecentSearchCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisRecentSearchCache{redisClient: redisClient, ttl: ttl}
}

func (c *redisRecentSearchCache) Get(ctx context.Context) ([]model.SearchRecord, bool, error) {
	data, err := c.redisClient.Get(ctx, recentSearchesKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get recent searches: %w", err)
	}
	var records []model.SearchRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal recent searches: %w", err)
	}
	return records, true, nil
}

func (c *redisRecentSearchCache) Version(ctx context.Context) (int64, error) {
	v, err := c.redisClient.Get(ctx, recentVersionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get recent searches version: %w", err)
	}
	return v, nil
}

func (c *redisRecentSearchCache) SetIfVersion(ctx context.Context, version int64, records []model.SearchRecord) (bool, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return false, fmt.Errorf("failed to marshal recent searches: %w", err)
	}
	keys := []string{recentSearchesKey, recentVersionKey}
	stored, err := setIfVersionScript.Run(ctx, c.redisClient, keys, version, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to set recent searches: %w", err)
	}
	return stored == 1, nil
}

// Invalidate 在新记录写入后递增版本号并删除缓存。
func (c *redisRecentSearchCache) Invalidate(ctx context.Context) error {
	_, err := c.redisClient.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, recentVersionKey)
		pipe.Del(ctx, recentSearchesKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate recent searches: %w", err)
	}
	return nil
}
