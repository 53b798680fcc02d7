// Package model 包含了应用的数据模型定义。
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchRecord 定义了 searches 表的 ORM 模型，每次完成的搜索写入一条，之后不再修改。
type SearchRecord struct {
	ID        string    `gorm:"primaryKey;type:char(36)" json:"id"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Answer    string    `gorm:"type:mediumtext;not null" json:"answer,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (SearchRecord) TableName() string {
	return "searches"
}

// BeforeCreate 在未指定 ID 时生成 UUID。
func (r *SearchRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// SearchResult 是从引用标注中提取出的一条来源。SourceID 为标注顺序中的 1-based 序号。
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	SourceID int    `json:"sourceId"`
}

// AskResponse 是 /api/ask 的响应体。
type AskResponse struct {
	Results           []SearchResult `json:"results"`
	Answer            string         `json:"answer"`
	VisualizationData *ChartData     `json:"visualizationData"`
	// Degraded 标记搜索超时/失败后的兜底响应，不序列化给客户端。
	Degraded bool `json:"-"`
}

// SearchDocument 是写入 Elasticsearch 历史索引的文档结构。
type SearchDocument struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
