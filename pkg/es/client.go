// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pai-search-go/internal/config"
	"pai-search-go/internal/model"
	"pai-search-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// 搜索历史索引的映射：query/answer 全文检索，id 与时间用于排序和去重。
const historyMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"query": { "type": "text" },
			"answer": { "type": "text" },
			"created_at": { "type": "date" }
		}
	}
}`

// NewClient 根据配置创建 Elasticsearch 客户端，多个地址以逗号分隔。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	var addrs []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: newTransport(esCfg),
	}
	return elasticsearch.NewClient(cfg)
}

// newTransport 默认校验服务端证书，只有显式配置 insecure_skip_verify 时才跳过。
func newTransport(esCfg config.ElasticsearchConfig) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if esCfg.InsecureSkipVerify {
		log.Warnf("[ES] 已关闭 TLS 证书校验，仅应在本地环境使用")
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return t
}

// HistoryStore 负责搜索历史索引的写入与检索。
type HistoryStore struct {
	client    *elasticsearch.Client
	indexName string
}

// NewHistoryStore 创建一个 HistoryStore。
func NewHistoryStore(client *elasticsearch.Client, indexName string) *HistoryStore {
	return &HistoryStore{client: client, indexName: indexName}
}

// InitHistoryStore 创建客户端并确保索引存在。
func InitHistoryStore(esCfg config.ElasticsearchConfig) (*HistoryStore, error) {
	client, err := NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	store := NewHistoryStore(client, esCfg.IndexName)
	if err := store.EnsureIndex(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// EnsureIndex 检查索引是否存在，如果不存在则创建它。
func (s *HistoryStore) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.indexName}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()
	// 200 说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", s.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", s.indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = s.client.Indices.Create(
		s.indexName,
		s.client.Indices.Create.WithBody(strings.NewReader(historyMapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", s.indexName, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", s.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", s.indexName)
	return nil
}

// IndexSearch 将一条搜索记录写入历史索引，文档 ID 即记录 ID，重复写入会覆盖。
func (s *HistoryStore) IndexSearch(ctx context.Context, doc model.SearchDocument) error {
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      s.indexName,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(docBytes),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引搜索记录到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index search document")
	}
	return nil
}

// SearchHistory 在 query 与 answer 上做全文匹配，按时间倒序返回最多 size 条。
func (s *HistoryStore) SearchHistory(ctx context.Context, text string, size int) ([]model.SearchDocument, error) {
	body := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"query^2", "answer"},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"created_at": map[string]string{"order": "desc"}},
			map[string]interface{}{"id": map[string]string{"order": "desc"}},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.indexName),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source model.SearchDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode elasticsearch response: %w", err)
	}

	docs := make([]model.SearchDocument, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, nil
}
