package handler

import (
	"net/http"
	"strconv"

	"pai-search-go/internal/model"
	"pai-search-go/internal/service"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 处理最近搜索与历史检索接口。
type HistoryHandler struct {
	historyService service.HistoryService
}

// NewHistoryHandler 创建一个新的 HistoryHandler 实例。
func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// RecentSearches 处理 GET /api/recent-searches，任何失败都返回空列表。
func (h *HistoryHandler) RecentSearches(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"searches": h.historyService.RecentSearches(c.Request.Context())})
}

// SearchHistory 处理 GET /api/search-history?q=&size=。
func (h *HistoryHandler) SearchHistory(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil {
		size = 0
	}

	docs, err := h.historyService.SearchHistory(c.Request.Context(), q, size)
	if err != nil || docs == nil {
		// 历史检索未启用或失败时降级为空列表，错误已在 service 层记录
		docs = []model.SearchDocument{}
	}
	c.JSON(http.StatusOK, gin.H{"searches": docs})
}
