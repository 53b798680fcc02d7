// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import (
	"time"

	"pai-search-go/internal/model"
)

// SearchPersistTask 是一次完成的搜索的持久化任务，ID 在派发时生成，重复投递时用于幂等写入。
type SearchPersistTask struct {
	ID          string               `json:"id"`
	Query       string               `json:"query"`
	Answer      string               `json:"answer"`
	Sources     []model.SearchResult `json:"sources,omitempty"`
	RequestedAt time.Time            `json:"requested_at"`
}
